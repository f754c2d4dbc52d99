package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/cli/cmd"
	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/infra/monitoring"
	"github.com/graffiticode/graffiticode/engine/infra/server"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve the task API over HTTP",
		Args:    cobra.NoArgs,
		RunE:    executeServeCommand,
	}
	command.Flags().String("host", "", "Listen host")
	command.Flags().Int("port", 0, "Listen port")
	command.Flags().String("auth-header", "", "Header carrying the caller uid")
	command.Flags().Bool("metrics", false, "Serve Prometheus metrics")
	command.Flags().Int64("rate-limit", 0, "Requests allowed per caller each rate period (0 disables)")
	command.Flags().Duration("rate-period", 0, "Rate limit window")
	return command
}

func executeServeCommand(cobraCmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobraCmd.SetContext(ctx)
	cfg := config.FromContext(ctx)
	if cfg.Runtime.LogLevel != string(logger.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	mon := monitoring.NewMonitoringServiceWithFallback(ctx, monitoring.FromAppConfig(&cfg.Monitoring))
	defer func() {
		if err := mon.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to shut down monitoring", "error", err)
		}
	}()
	var opts []dao.Option
	if mon.IsInitialized() {
		metrics, err := monitoring.NewDAOMetrics(mon.Meter())
		if err != nil {
			return fmt.Errorf("failed to create dao metrics: %w", err)
		}
		opts = append(opts, dao.WithDecorator(metrics.Decorator()))
	}
	return cmd.ExecuteWithDAO(cobraCmd, args, func(ctx context.Context, _ *cobra.Command, d dao.DAO, _ []string) error {
		srv, err := server.NewServer(ctx, cfg, d, mon)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		logger.FromContext(ctx).Info("Starting graffiticode server", "storage", cfg.Storage.Kind, "addr", srv.Addr())
		return srv.Run(ctx)
	}, opts...)
}
