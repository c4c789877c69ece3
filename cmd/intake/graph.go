package main

import (
	"fmt"
	"os"

	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the script graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the script. With --user, the
user's current node and answered questions are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			s, err := loadScript(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s, nil))
			return nil
		}

		ctx := cmd.Context()
		app, _, err := openApp(ctx, cfg, tui.NewConsole(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		u, err := app.Store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		answers, err := app.Store.Answers(ctx, userID)
		if err != nil {
			return err
		}
		slots := make(map[int]bool)
		for _, a := range answers {
			slots[a.QuestionID] = true
		}
		overlay := &graph.GraphOverlay{CurrentNode: &u.Progress}
		for id, n := range app.Script.Nodes {
			if n.QuestionID != 0 && slots[n.QuestionID] {
				overlay.VisitedNodes = append(overlay.VisitedNodes, id)
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Script, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("user", "", "Highlight the state of this user id")
}
