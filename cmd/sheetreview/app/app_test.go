package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
)

const testSheet = constants.DefaultSheetName

func testConfig() *Config {
	return &Config{
		Backend:           BackendSheets,
		SpreadsheetID:     "review-sheet",
		SheetName:         testSheet,
		LastColumn:        "D",
		PollInterval:      time.Hour,
		SectionColumns:    []string{"B"},
		SectionVocabulary: constants.DefaultSectionVocabulary,
		LogFormat:         "json",
		LogOutput:         "discard",
	}
}

// newTestApp returns an App on a memory gateway seeded with three rows.
func newTestApp(t *testing.T, config *Config) (*App, *gateway.Memory) {
	t.Helper()
	isolate(t)

	gw := gateway.NewMemory()
	gw.Load(config.SpreadsheetID, testSheet, [][]string{
		{"Name", "Track", "Comment", "Extra"},
		{"Ada", "ai", "", "x"},
		{"Grace", "cyber", "strong", ""},
		{"Linus", "ai", "", ""},
	})

	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2024-01-01", "test",
		WithConfig(config),
		WithLogger(&logger),
		WithGateway(gw),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app, gw
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	isolate(t)

	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
	if app.Metrics() == nil {
		t.Error("Metrics() returned nil")
	}
}

// TestApp_ClientAppliesConfig verifies that configured columns reach the
// client.
func TestApp_ClientAppliesConfig(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	ctx := context.Background()

	c, err := app.Client(ctx)
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	defer c.Close()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	v := c.View()
	if v.Row == nil || v.Row.Field(0) != "Ada" {
		t.Fatalf("Row = %+v, want Ada", v.Row)
	}
	// No annotation column configured: the last header column is used.
	if v.AnnotationColumn != 3 {
		t.Errorf("AnnotationColumn = %d, want 3", v.AnnotationColumn)
	}
	if len(v.Sections) != 1 || v.Sections[0].Label != "ai" {
		t.Errorf("Sections = %v, want [ai]", v.Sections)
	}
}

func TestApp_ClientAnnotationColumn(t *testing.T) {
	config := testConfig()
	config.AnnotationColumn = "C"
	app, gw := newTestApp(t, config)
	ctx := context.Background()

	c, err := app.Client(ctx)
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	defer c.Close()

	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateDraft("invite"); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if got := gw.Values(config.SpreadsheetID, testSheet)[1][2]; got != "invite" {
		t.Errorf("C2 = %q, want invite", got)
	}
}

func TestApp_ClientRejectsBadColumns(t *testing.T) {
	tests := map[string]func(*Config){
		"last column":       func(c *Config) { c.LastColumn = "0" },
		"annotation column": func(c *Config) { c.AnnotationColumn = "C3" },
		"section column":    func(c *Config) { c.SectionColumns = []string{"-1"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			config := testConfig()
			mutate(config)
			app, _ := newTestApp(t, config)

			_, err := app.Client(context.Background())
			if !errors.IsValidationError(err) {
				t.Errorf("Client() error = %v, want validation error", err)
			}
		})
	}
}

// TestApp_GatewayValidatesConfig verifies the config is checked before a
// gateway is built.
func TestApp_GatewayValidatesConfig(t *testing.T) {
	isolate(t)
	logger := zerolog.Nop()
	app, err := New("dev", "", "", "", WithConfig(&Config{Backend: BackendSheets, PollInterval: time.Minute}), WithLogger(&logger))
	if err != nil {
		t.Fatal(err)
	}

	_, err = app.Client(context.Background())
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Client() error = %v, want *errors.ConfigError", err)
	}
}

// TestApp_Gateway_ThreadSafe verifies concurrent Gateway() calls are safe.
func TestApp_Gateway_ThreadSafe(t *testing.T) {
	app, gw := newTestApp(t, testConfig())

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]gateway.Gateway, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _ = app.Gateway(context.Background())
		}(i)
	}
	wg.Wait()

	for i, g := range results {
		if g != gw {
			t.Errorf("goroutine %d got a different gateway", i)
		}
	}
}

func TestApp_ServerConfig(t *testing.T) {
	config := testConfig()
	config.Server = ServerConfig{Port: 9000, CORSOrigins: []string{"https://example.com"}, Auth: true}
	app, _ := newTestApp(t, config)

	cfg := app.ServerConfig()
	if cfg.Port != 9000 || cfg.Host != "localhost" {
		t.Errorf("Host:Port = %s:%d", cfg.Host, cfg.Port)
	}
	if !cfg.CORSEnabled || !cfg.AuthEnabled {
		t.Errorf("CORS/auth not enabled: %+v", cfg)
	}
	if cfg.PathPrefix != "/api/v1" {
		t.Errorf("PathPrefix = %q", cfg.PathPrefix)
	}
}

// TestApp_Commands runs commands through the root command.
func TestApp_Commands(t *testing.T) {
	config := testConfig()
	config.Format = "json"
	app, _ := newTestApp(t, config)

	run := func(args ...string) (string, error) {
		root := app.createRootCommand()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := run("column", "60")
	if err != nil || strings.TrimSpace(out) != "BH" {
		t.Errorf("column 60 = %q, %v", out, err)
	}

	out, err = run("version")
	if err != nil || !strings.Contains(out, "sheetreview 1.0.0") {
		t.Errorf("version = %q, %v", out, err)
	}

	out, err = run("show", "--page", "2")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, `"Grace"`) {
		t.Errorf("show --page 2 output missing Grace: %s", out)
	}

	out, err = run("--sheet", "Missing", "show")
	if err == nil {
		t.Errorf("show on a missing sheet succeeded: %s", out)
	}
}

func TestApp_Shutdown(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Shutdown(ctx); err == nil {
		t.Error("Shutdown() with a cancelled context should fail")
	}
}
