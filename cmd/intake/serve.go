package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/intake/internal/presentation/tui"
	intakehttp "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/adapters/mcp"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the JSON HTTP API: POST /v1/events for user turns, /v1/operator/*
for the operator and /metrics for Prometheus. Outbound messages go to the
configured webhook (INTAKE_WEBHOOK_URL), or to stdout when none is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var renderer ports.Renderer = tui.NewConsole(cmd.OutOrStdout(), tui.WithOperatorChannel(cfg.OperatorChannel))
		if cfg.WebhookURL != "" {
			renderer = intakehttp.NewWebhookRenderer(cfg.WebhookURL)
		}

		addr, _ := cmd.Flags().GetString("addr")
		mcpAddr, _ := cmd.Flags().GetString("mcp-addr")

		app, logger, err := openApp(ctx, cfg, renderer)
		if err != nil {
			return err
		}
		defer app.Close()
		if addr == "" {
			addr = app.Config.HTTPAddr
		}
		if cfg.WebhookURL == "" {
			logger.Warn("No webhook configured, printing outbound messages to stdout")
		}

		srv := &http.Server{
			Addr: addr,
			Handler: intakehttp.NewHandler(app.Conversation,
				intakehttp.WithOperator(app.Operator),
				intakehttp.WithExport(app.Store),
				intakehttp.WithMetrics(app.Metrics.Handler()),
				intakehttp.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("HTTP server listening", "address", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("Shutting down HTTP server")
			return srv.Shutdown(shutdownCtx)
		})
		if mcpAddr != "" {
			g.Go(func() error {
				err := mcp.NewServer(app.Operator, app.Script, mcp.WithLogger(logger)).ServeSSE(ctx, mcpAddr)
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default: INTAKE_HTTP_ADDR)")
	serveCmd.Flags().String("mcp-addr", "", "Also serve MCP over SSE on this address")
}
