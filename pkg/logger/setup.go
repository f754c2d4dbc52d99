package logger

import "io"

// SetupLogger builds a logger from runtime settings, installs it as the
// process default and returns it. A nil out writes to stdout.
func SetupLogger(logLevel string, logJSON, logSource bool, out io.Writer) Logger {
	cfg := DefaultConfig()
	cfg.Level = LogLevel(logLevel)
	cfg.JSON = logJSON
	cfg.AddSource = logSource
	if out != nil {
		cfg.Output = out
	}
	defaultLogger = NewLogger(cfg)
	return defaultLogger
}
