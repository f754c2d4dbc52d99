package task

import (
	"context"
	"fmt"

	"github.com/graffiticode/graffiticode/cli/cmd"
	"github.com/graffiticode/graffiticode/cli/helpers"
	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/spf13/cobra"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "task",
		Short: "Create and fetch tasks",
	}
	command.AddCommand(newCreateCommand(), newGetCommand())
	return command
}

func newCreateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "create",
		Short: "Store a task and print its identifier",
		Long: `Store a task and print its identifier.
--code is parsed as JSON when possible and stored as a string otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteWithDAO(cobraCmd, args, handleCreate)
		},
	}
	command.Flags().String("lang", "", "Language identifier")
	command.Flags().String("code", "", "Task code")
	command.Flags().String("code-file", "", "Read task code from a file, or - for stdin")
	command.Flags().String("mark", "", "Optional JSON mark stored with the task")
	command.Flags().String("uid", "", "Submit as this user; anonymous when empty")
	command.MarkFlagsMutuallyExclusive("code", "code-file")
	command.MarkFlagsOneRequired("code", "code-file")
	_ = command.MarkFlagRequired("lang")
	return command
}

func handleCreate(ctx context.Context, cobraCmd *cobra.Command, d dao.DAO, _ []string) error {
	flags := cobraCmd.Flags()
	lang, _ := flags.GetString("lang")
	source, _ := flags.GetString("code")
	if path, _ := flags.GetString("code-file"); path != "" {
		var err error
		if source, err = helpers.ReadSource(path, cobraCmd.InOrStdin()); err != nil {
			return err
		}
	}
	req := &dao.CreateRequest{
		Auth: authFlag(cobraCmd),
		Task: &task.Task{Lang: lang, Code: helpers.ParseCode(source)},
	}
	if mark, _ := flags.GetString("mark"); mark != "" {
		req.Mark = helpers.ParseCode(mark)
	}
	id, err := d.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), map[string]string{"id": id})
}

func newGetCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "get ID",
		Short: "Print the tasks an identifier addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteWithDAO(cobraCmd, args, handleGet)
		},
	}
	command.Flags().String("uid", "", "Fetch as this user; anonymous when empty")
	return command
}

func handleGet(ctx context.Context, cobraCmd *cobra.Command, d dao.DAO, args []string) error {
	tasks, err := d.Get(ctx, &dao.GetRequest{ID: args[0], Auth: authFlag(cobraCmd)})
	if err != nil {
		return fmt.Errorf("get tasks: %w", err)
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), map[string]any{"tasks": tasks})
}

func authFlag(cobraCmd *cobra.Command) *task.Auth {
	uid, _ := cobraCmd.Flags().GetString("uid")
	if uid == "" {
		return nil
	}
	return &task.Auth{UID: uid}
}
