package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		" warn ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"none":     zerolog.Disabled,
		"disabled": zerolog.Disabled,
		"loud":     zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, FormatJSON, resolveFormat(FormatAuto, &buf))
	assert.Equal(t, FormatConsole, resolveFormat("pretty", &buf))
	assert.Equal(t, FormatJSON, resolveFormat("JSON", &buf))
}

func TestTimeLayout(t *testing.T) {
	assert.Equal(t, time.Kitchen, timeLayout("kitchen"))
	assert.Equal(t, time.RFC3339, timeLayout("RFC3339"))
	assert.Equal(t, "", timeLayout("unix"))
	assert.Equal(t, "15:04:05", timeLayout("15:04:05"))
	assert.Equal(t, time.Kitchen, timeLayout("whenever"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")

	cfg := ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, "error", ConfigFromEnv().Level)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.log")

	logger := New(Config{Level: "info", Format: FormatJSON, Output: path, Component: "watch"})
	logger.Info().Int("row", 3).Msg("Row updated")
	logger.Debug().Msg("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"component":"watch"`)
	assert.Contains(t, out, `"row":3`)
	assert.NotContains(t, out, "hidden")
}

func TestNewFallsBackToStderr(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing", "dir", "review.log")
	_, err := openOutput(bad)
	require.Error(t, err)

	logger := New(Config{Level: "disabled", Output: bad})
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
}

func TestOpenOutputNamedSinks(t *testing.T) {
	for _, name := range []string{"", "stderr", "stdout", "discard", "NONE"} {
		w, err := openOutput(name)
		require.NoError(t, err, name)
		assert.NotNil(t, w)
	}
	assert.False(t, strings.Contains(DefaultConfig().Output, "/"))
}
