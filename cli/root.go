package cli

import (
	"github.com/graffiticode/graffiticode/cli/cmd/config"
	"github.com/graffiticode/graffiticode/cli/cmd/id"
	"github.com/graffiticode/graffiticode/cli/cmd/serve"
	"github.com/graffiticode/graffiticode/cli/cmd/task"
	"github.com/graffiticode/graffiticode/pkg/version"
	"github.com/spf13/cobra"
)

// RootCmd builds the graffiticode command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "graffiticode",
		Short:             "Graffiticode task storage service",
		Version:           version.GetVersion(),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("env-file", ".env", "Path to a dotenv file loaded before configuration")
	flags.String("storage", "", "Task storage backend (memory or firestore)")
	flags.String("driver", "", "Persistent storage driver (postgres, sqlite or redis)")
	flags.String("db-conn-string", "", "Postgres connection string")
	flags.String("sqlite-path", "", "SQLite database path")
	flags.String("redis-url", "", "Redis connection URL")
	flags.String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")

	root.AddCommand(
		serve.NewServeCommand(),
		task.NewTaskCommand(),
		id.NewIDCommand(),
		config.NewConfigCommand(),
	)
	return root
}
