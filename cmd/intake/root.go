package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Intake runs a scripted questionnaire bot",
	Long: `Intake walks chat users through a small branching questionnaire, records
their answers and relays summaries to an operator channel.

Configuration comes from INTAKE_* environment variables; flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("storage", "", "Storage driver: sqlite, redis or memory")
	f.String("db", "", "SQLite database path")
	f.String("redis-addr", "", "Redis address")
	f.String("script", "", "Script YAML file (default: embedded script)")
	f.String("operator-channel", "", "Operator channel identifier")
	f.String("source", "", "Channel tag of broadcast recipients")
	f.String("back-policy", "", "Back without a graph edge: last_answer, decrement or none")
	f.Int("escalation-node", 0, "Node users escalate to when the node names none")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.Bool("audit-log", false, "Log every turn, delivery and notification")
}

// loadConfig parses the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("storage", &cfg.Storage)
	str("db", &cfg.DBPath)
	str("redis-addr", &cfg.RedisAddr)
	str("script", &cfg.ScriptPath)
	str("operator-channel", &cfg.OperatorChannel)
	str("source", &cfg.Source)
	str("back-policy", &cfg.BackPolicy)
	str("log-level", &cfg.LogLevel)
	if f.Changed("audit-log") {
		cfg.AuditLog, _ = f.GetBool("audit-log")
	}
	if f.Changed("escalation-node") {
		cfg.EscalationNode, _ = f.GetInt("escalation-node")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func loadScript(cfg config.Config) (*domain.Script, error) {
	return intake.LoadScript(cfg.ScriptPath, registry.Builtins())
}

// openApp wires the services around renderer.
func openApp(ctx context.Context, cfg config.Config, renderer ports.Renderer) (*intake.App, *slog.Logger, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	app, err := intake.New(ctx, cfg, intake.WithRenderer(renderer), intake.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
