package main

import (
	"fmt"

	"github.com/aretw0/intake/internal/validator"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/script"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [script.yaml]",
	Short: "Check the script for consistency",
	Long: `Checks that every target names an existing node, that text functions exist
and that every node is reachable from node 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.ScriptPath
		if len(args) > 0 {
			path = args[0]
		}

		s, err := script.Default()
		if path != "" {
			s, err = script.Load(path)
		}
		if err != nil {
			return err
		}
		if err := validator.ValidateGraph(s, registry.Builtins(), cfg.EscalationNode); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Script %q is valid! ✅ (%d nodes)\n", s.Name, len(s.Nodes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
