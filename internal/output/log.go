// Package output provides terminal output for the shadertpl commands.
package output

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// LogConfig holds the logging options of a command.
type LogConfig struct {
	Verbose bool
	// Output defaults to stderr
	Output io.Writer
}

// SetupLogging creates the charm logger for cfg and installs it as the slog
// default, so library code logging through slog ends up in the same stream.
func SetupLogging(cfg LogConfig) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
	slog.SetDefault(slog.New(logger))
	return logger
}

// Slog wraps logger as a *slog.Logger for the packages that take one
func Slog(logger *log.Logger) *slog.Logger {
	return slog.New(logger)
}

// TemplateLogger returns a child logger prefixed with the template name
func TemplateLogger(logger *log.Logger, template string) *log.Logger {
	return logger.WithPrefix(StyleNoun.Render(template))
}
