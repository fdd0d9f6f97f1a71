package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Format names accepted by Config.Format.
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config describes where and how log lines are written.
type Config struct {
	Level  string // trace, debug, info, warn, error, disabled
	Format string // auto, json, console (pretty is an alias)
	// Output is stderr, stdout, discard or a file path opened for append.
	Output     string
	TimeFormat string
	NoColor    bool
	AddCaller  bool
	// Component is stamped on every line when set, e.g. "server" or "watch".
	Component string
}

// DefaultConfig is info level, auto format, on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     FormatAuto,
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}

// ConfigFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT and NO_COLOR on top
// of DefaultConfig. DEBUG=1 is honoured when LOG_LEVEL is unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	} else if os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Output = v
	}
	return cfg
}

// New builds a logger from cfg. An unusable output file falls back to
// stderr and the failure is logged on the returned logger.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)

	out, openErr := openOutput(cfg.Output)
	if openErr != nil {
		out = os.Stderr
	}

	var w io.Writer = out
	if resolveFormat(cfg.Format, out) == FormatConsole {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeLayout(cfg.TimeFormat),
			NoColor:    cfg.NoColor,
		}
	}

	lc := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		lc = lc.Caller()
	}
	if cfg.Component != "" {
		lc = lc.Str("component", cfg.Component)
	}
	logger := lc.Logger()

	if openErr != nil {
		logger.Warn().Err(openErr).Msg("Logging to stderr instead")
	}
	return logger
}

var levelAliases = map[string]string{
	"warning": "warn",
	"none":    "disabled",
	"off":     "disabled",
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := levelAliases[name]; ok {
		name = alias
	}
	if name == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func openOutput(name string) (io.Writer, error) {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard", "none":
		return io.Discard, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", name, err)
	}
	return f, nil
}

// resolveFormat turns auto into console for terminals and json otherwise.
func resolveFormat(format string, out io.Writer) string {
	switch strings.ToLower(format) {
	case FormatConsole, "pretty", "text":
		return FormatConsole
	case FormatJSON:
		return FormatJSON
	}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return FormatConsole
		}
	}
	return FormatJSON
}

var timeLayouts = map[string]string{
	"kitchen":     time.Kitchen,
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"datetime":    time.DateTime,
	"stamp":       time.Stamp,
	"unix":        "",
}

// timeLayout resolves a named layout; anything containing a Go reference
// time component is used verbatim.
func timeLayout(name string) string {
	if layout, ok := timeLayouts[strings.ToLower(name)]; ok {
		return layout
	}
	if strings.Contains(name, "2006") || strings.Contains(name, "15:04") {
		return name
	}
	return time.Kitchen
}
