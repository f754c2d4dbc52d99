package id

import (
	"context"
	"fmt"

	"github.com/graffiticode/graffiticode/cli/cmd"
	"github.com/graffiticode/graffiticode/cli/helpers"
	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/taskid"
	"github.com/spf13/cobra"
)

// NewIDCommand creates the id command group.
func NewIDCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "id",
		Short: "Inspect and combine task identifiers",
	}
	command.AddCommand(
		&cobra.Command{
			Use:   "append ID...",
			Short: "Combine identifiers into one addressing all their tasks",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cobraCmd *cobra.Command, args []string) error {
				return cmd.ExecuteWithDAO(cobraCmd, args, handleAppend)
			},
		},
		&cobra.Command{
			Use:   "decode ID",
			Short: "Print the references an identifier encodes",
			Args:  cobra.ExactArgs(1),
			RunE:  handleDecode,
		},
	)
	return command
}

func handleAppend(ctx context.Context, cobraCmd *cobra.Command, d dao.DAO, args []string) error {
	id, err := d.AppendIDs(ctx, args[0], args[1:]...)
	if err != nil {
		return fmt.Errorf("append ids: %w", err)
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), map[string]string{"id": id})
}

func handleDecode(cobraCmd *cobra.Command, args []string) error {
	refs, err := taskid.Decode(args[0])
	if err != nil {
		return err
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), map[string]any{"refs": refs})
}
