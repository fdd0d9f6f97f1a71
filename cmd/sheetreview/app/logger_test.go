package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name:     "default level when no flags set",
			config:   &Config{},
			expected: "info",
		},
		{
			name:     "verbose flag sets debug",
			config:   &Config{Verbose: true},
			expected: "debug",
		},
		{
			name:     "quiet flag sets warn",
			config:   &Config{Quiet: true},
			expected: "warn",
		},
		{
			name:     "explicit log-level overrides verbose",
			config:   &Config{LogLevel: "error", Verbose: true},
			expected: "error",
		},
		{
			name:     "explicit log-level overrides quiet",
			config:   &Config{LogLevel: "trace", Quiet: true},
			expected: "trace",
		},
		{
			name:     "quiet wins over verbose",
			config:   &Config{Verbose: true, Quiet: true},
			expected: "warn",
		},
		{
			name:     "warning alias is not a level name",
			config:   &Config{LogLevel: "warning"},
			expected: "info",
		},
		{
			name:     "upper case level accepted",
			config:   &Config{LogLevel: "DEBUG"},
			expected: "debug",
		},
		{
			name:     "invalid log-level falls back to info",
			config:   &Config{LogLevel: "loud"},
			expected: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := logLevel(tt.config); got != tt.expected {
				t.Errorf("logLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json", LogOutput: "discard", Verbose: true}, "watch")
	if logger.GetLevel().String() != "debug" {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}
}

func TestNewLoggerComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	logger := NewLogger(&Config{LogFormat: "json", LogOutput: path}, "serve")
	logger.Info().Msg("Starting API server")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"serve"`) {
		t.Errorf("log line lacks component: %s", data)
	}
}
