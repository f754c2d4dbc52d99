package config

import (
	"fmt"

	"github.com/graffiticode/graffiticode/cli/helpers"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	command.AddCommand(NewConfigShowCommand())
	return command
}

// NewConfigShowCommand creates the config show subcommand.
func NewConfigShowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE:  executeConfigShowCommand,
	}
	command.Flags().StringP("format", "f", helpers.FormatJSON, "Output format (json, yaml)")
	return command
}

func executeConfigShowCommand(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	logger.FromContext(ctx).Debug("executing config show command")
	format, err := cobraCmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	values, err := config.FromContext(ctx).AsMap()
	if err != nil {
		return err
	}
	return helpers.Write(cobraCmd.OutOrStdout(), format, values)
}
