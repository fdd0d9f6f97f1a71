package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apptest "github.com/agentstation/sheetreview/internal/cmd/application"
)

// syncBuffer is a bytes.Buffer safe for the poll goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// loggingMock hands out the mock's clients but logs into buf.
type loggingMock struct {
	*apptest.Mock
	logger zerolog.Logger
}

func (m *loggingMock) Logger() *zerolog.Logger { return &m.logger }

func TestWatchLogsChanges(t *testing.T) {
	mock := apptest.NewMock([][]string{
		{"Name", "Track", "Comment"},
		{"Ada", "ai", ""},
	})

	var logs syncBuffer
	app := &loggingMock{Mock: mock, logger: zerolog.New(&logs)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewCommand(app)
	cmd.SetArgs([]string{"--interval", "10ms"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// The first poll only loads the table and pins the row in view.
	waitFor(t, &logs, "Submission in view changed")

	mock.Gateway.AppendRow(apptest.TableID, apptest.Sheet, []string{"Linus", "ai", ""})
	waitFor(t, &logs, "Row added")
	waitFor(t, &logs, `"fields":["Linus","ai"`)

	mock.Gateway.SetCell(apptest.TableID, apptest.Sheet, 3, 2, "strong")
	waitFor(t, &logs, "Row updated")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	if !strings.Contains(logs.String(), "Stopped watching") {
		t.Errorf("missing stop message:\n%s", logs.String())
	}
}

func waitFor(t *testing.T, logs *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(logs.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in:\n%s", want, logs.String())
}
