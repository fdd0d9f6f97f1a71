package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/logging"
)

// NewLogger builds the CLI logger. component, when set, is the running
// command and is stamped on every line so watch and serve logs can be
// told apart in one sink.
func NewLogger(config *Config, component string) zerolog.Logger {
	level := logLevel(config)
	return logging.New(logging.Config{
		Level:      level,
		Format:     config.LogFormat,
		Output:     config.LogOutput,
		TimeFormat: "kitchen",
		NoColor:    config.NoColor,
		AddCaller:  level == "debug" || level == "trace",
		Component:  component,
	})
}

// logLevel picks the level: --log-level, then --quiet, then --verbose,
// then info. Quiet beats verbose so scripts can silence a verbose alias.
func logLevel(config *Config) string {
	if name := strings.ToLower(config.LogLevel); name != "" {
		level := logging.ParseLevel(name)
		if level > zerolog.ErrorLevel || level.String() != name {
			fmt.Fprintf(os.Stderr, "Warning: unknown log level %q, using info\n", config.LogLevel)
			return "info"
		}
		return name
	}
	switch {
	case config.Quiet && config.Verbose:
		fmt.Fprintln(os.Stderr, "Warning: --verbose and --quiet both set, using --quiet")
		return "warn"
	case config.Quiet:
		return "warn"
	case config.Verbose:
		return "debug"
	}
	return "info"
}
