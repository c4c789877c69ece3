package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/conversation"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/operator"
	"github.com/spf13/cobra"
)

const consoleSource = "console"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Walk through the questionnaire in the terminal",
	Long: `Runs the questionnaire interactively. Type a button number to press it, or
any text to answer free-text questions. /start restarts the questionnaire and
/quit leaves.

Lines starting with '!' go to the operator channel, e.g. '!/report',
'!@username' or '!/broadcast Hello'. '!1' presses a button of the last
operator message.

The session runs on an in-memory store unless --persist is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if persist, _ := cmd.Flags().GetBool("persist"); !persist {
			cfg.Storage = config.DriverMemory
		}
		cfg.Source = consoleSource

		out := cmd.OutOrStdout()
		console := tui.NewConsole(out, tui.WithOperatorChannel(cfg.OperatorChannel))
		app, _, err := openApp(ctx, cfg, console)
		if err != nil {
			return err
		}
		defer app.Close()

		tui.PrintBanner(out, intake.Version)

		name, _ := cmd.Flags().GetString("name")
		profile := domain.Profile{Source: consoleSource, NativeID: 1, FirstName: name, Username: strings.ToLower(name)}
		turn := func(ev domain.InputEvent) error {
			_, err := app.Conversation.HandleTurn(ctx, conversation.InboundEvent{Profile: profile, Event: ev})
			return err
		}
		if err := turn(domain.Entry()); err != nil {
			return err
		}

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			fmt.Fprint(out, "> ")
			var line string
			select {
			case <-ctx.Done():
				fmt.Fprintln(out)
				return nil
			case l, ok := <-lines:
				if !ok {
					return nil
				}
				line = strings.TrimSpace(l)
			}

			switch {
			case line == "":
				continue
			case line == "/quit" || line == "/exit":
				fmt.Fprintln(out, "Bye!")
				return nil
			case strings.HasPrefix(line, "!"):
				ev := operatorEvent(console, cfg.OperatorChannel, strings.TrimPrefix(line, "!"))
				if err := app.Operator.HandleCommand(ctx, ev); err != nil {
					fmt.Fprintf(out, "operator: %v\n", err)
				}
			default:
				if err := turn(console.Parse(profile.UserID(), line)); err != nil {
					return err
				}
			}
		}
	},
}

func operatorEvent(console *tui.Console, channel, line string) operator.Event {
	ev := console.Parse(channel, line)
	if ev.Kind == domain.EventChoice {
		return operator.Event{Token: ev.Token}
	}
	return operator.Event{Text: line}
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("persist", false, "Use the configured store instead of memory")
	chatCmd.Flags().String("name", "Guest", "First name to greet")
}
