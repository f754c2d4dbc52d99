package cli

import (
	"context"
	"fmt"

	"github.com/graffiticode/graffiticode/cli/helpers"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setup loads configuration and attaches it and the logger to the command context.
func setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := helpers.LoadEnvFile(envFile); err != nil {
		return err
	}
	sources, err := configSources(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.NewService().Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource, cmd.ErrOrStderr())
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}

func configSources(cmd *cobra.Command) ([]config.Source, error) {
	var sources []config.Source
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	flags := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags[f.Name] = f.Value.String()
	})
	return append(sources, config.NewCLIProvider(flags)), nil
}
