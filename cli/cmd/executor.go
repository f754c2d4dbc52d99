// Package cmd holds the plumbing shared by the graffiticode subcommands.
package cmd

import (
	"context"
	"fmt"

	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/spf13/cobra"
)

// HandlerFunc runs a subcommand against the configured task DAO.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, d dao.DAO, args []string) error

// ExecuteWithDAO opens the DAO selected by storage.kind, runs handler and closes it.
func ExecuteWithDAO(cobraCmd *cobra.Command, args []string, handler HandlerFunc, opts ...dao.Option) (err error) {
	ctx := cobraCmd.Context()
	cfg := config.FromContext(ctx)
	factory := dao.NewFactory(cfg, opts...)
	defer func() {
		if closeErr := factory.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.FromContext(ctx).Warn("Failed to close task storage", "error", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()
	d, err := factory.CreateByName(ctx, cfg.Storage.Kind)
	if err != nil {
		return fmt.Errorf("failed to open task storage: %w", err)
	}
	return handler(ctx, cobraCmd, d, args)
}
