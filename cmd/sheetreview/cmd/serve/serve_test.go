package serve

import (
	"context"
	"net/http"
	"testing"
	"time"

	apptest "github.com/agentstation/sheetreview/internal/cmd/application"
	"github.com/agentstation/sheetreview/internal/server"
	"github.com/agentstation/sheetreview/pkg/errors"
)

func TestParseConfigKeepsDefaults(t *testing.T) {
	base := server.DefaultConfig()
	base.Port = 9000
	base.AuthEnabled = true

	cmd := NewCommand(apptest.NewMock(nil), func() server.Config { return base })
	if err := cmd.ParseFlags([]string{"--rate-limit", "5"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig(cmd, base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || !cfg.AuthEnabled {
		t.Errorf("unset flags must keep configured values: %+v", cfg)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d, want 5", cfg.RateLimit)
	}
}

func TestParseConfigFlags(t *testing.T) {
	cmd := NewCommand(apptest.NewMock(nil), server.DefaultConfig)
	err := cmd.ParseFlags([]string{
		"--port", "3000",
		"--cors-origins", "https://a.example,https://b.example",
		"--viewer-ttl", "5m",
		"--metrics=false",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig(cmd, server.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if !cfg.CORSEnabled || len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORS = %v %v", cfg.CORSEnabled, cfg.CORSOrigins)
	}
	if cfg.ViewerIdleTTL != 5*time.Minute {
		t.Errorf("ViewerIdleTTL = %v, want 5m", cfg.ViewerIdleTTL)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics should be disabled")
	}
}

func TestParseConfigEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "4000")
	t.Setenv("HTTP_HOST", "0.0.0.0")

	cmd := NewCommand(apptest.NewMock(nil), server.DefaultConfig)
	cfg, err := parseConfig(cmd, server.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 4000 || cfg.Host != "0.0.0.0" {
		t.Errorf("Host:Port = %s:%d", cfg.Host, cfg.Port)
	}

	t.Setenv("HTTP_PORT", "70000")
	if _, err := parseConfig(cmd, server.DefaultConfig()); !errors.IsValidationError(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8080", 8080, false},
		{"1", 1, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"http", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePort(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parsePort(%q) = %d, %v", tt.in, got, err)
		}
	}
}

// TestServeShutsDownOnCancel runs the server on an ephemeral port and
// checks that cancelling the context stops it cleanly.
func TestServeShutsDownOnCancel(t *testing.T) {
	mock := apptest.NewMock([][]string{{"Name", "Comment"}, {"Ada", ""}})
	cfg := server.DefaultConfig()
	cfg.RateLimit = 0

	srv, err := server.New(mock, cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()

	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: srv.Handler()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, httpServer, srv, mock.Logger()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
