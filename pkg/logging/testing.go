package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger is a trace-level JSON logger that records into memory. Writes
// are serialized so a poll goroutine and the test body can log together.
type TestLogger struct {
	zerolog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.Write(p)
}

// NewTestLogger returns a recording logger.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()
	tl := &TestLogger{}
	tl.Logger = zerolog.New(tl).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	return tl
}

// Output returns everything recorded so far.
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.String()
}

// Entries decodes the recorded lines. Non-JSON lines are skipped.
func (tl *TestLogger) Entries() []map[string]any {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(tl.Output()), "\n") {
		entry := map[string]any{}
		if json.Unmarshal([]byte(line), &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Find returns the first entry whose message is msg.
func (tl *TestLogger) Find(msg string) (map[string]any, bool) {
	for _, e := range tl.Entries() {
		if e["message"] == msg {
			return e, true
		}
	}
	return nil, false
}

// Reset drops everything recorded.
func (tl *TestLogger) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.buf.Reset()
}

// DisableLoggingForTest silences the default logger until the test ends.
func DisableLoggingForTest(t testing.TB) {
	t.Helper()
	original := *Default()
	SetDefault(zerolog.Nop())
	t.Cleanup(func() { SetDefault(original) })
}
