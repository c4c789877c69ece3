package main

import (
	"fmt"
	"os"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the aggregate user counts",
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

		r, err := app.Operator.Report(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), r.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
