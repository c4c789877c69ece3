package main

import (
	"fmt"
	"os"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file.xlsx]",
	Short: "Write every table to an Excel workbook",
	Long: `Writes the users and answers tables, one sheet each, to the given file or to
a timestamped file in the export directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
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

		if len(args) == 0 {
			path, err := app.Operator.Export(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Export written to %s\n", path)
			return nil
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		if err := export.WriteWorkbook(ctx, app.Store, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Export written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
