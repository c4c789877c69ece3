package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect stored users",
}

var usersLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, _, err := openApp(ctx, cfg, tui.NewConsole(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		tables, err := app.Store.Dump(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			if t.Name != ports.UsersTable {
				continue
			}
			if len(t.Rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, row := range append([][]string{t.Header}, t.Rows...) {
				for i, cell := range row {
					if i > 0 {
						fmt.Fprint(w, "\t")
					}
					fmt.Fprint(w, cell)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		}
		return nil
	},
}

var usersInspectCmd = &cobra.Command{
	Use:   "inspect <username>",
	Short: "Show the profile and answers of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, _, err := openApp(ctx, cfg, tui.NewConsole(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		chunks, err := app.Operator.UserInfo(ctx, args[0])
		if err != nil {
			return fmt.Errorf("inspect %s: %w", args[0], err)
		}
		for _, c := range chunks {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <user_id>",
	Short: "Print the stored row of a user as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, _, err := openApp(ctx, cfg, tui.NewConsole(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		u, err := app.Sessions.Load(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load %s: %w", args[0], err)
		}
		if u == nil {
			return fmt.Errorf("user %s not found", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(u)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersLsCmd, usersInspectCmd, usersGetCmd)
}
