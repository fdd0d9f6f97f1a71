package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/sheetreview"
	apptest "github.com/agentstation/sheetreview/internal/cmd/application"
	"github.com/agentstation/sheetreview/internal/server/middleware"
	"github.com/agentstation/sheetreview/internal/server/response"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
)

const (
	testTable = apptest.TableID
	testSheet = apptest.Sheet
)

func newTestApplication() *apptest.Mock {
	return apptest.NewMock([][]string{
		{"Name", "Track", "Comment"},
		{"Ada", "ai", ""},
		{"Grace", "cyber", "strong"},
		{"Linus", "ai", ""},
	})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *response.Error `json:"error"`
}

type viewerBody struct {
	ID   string           `json:"id"`
	View sheetreview.View `json:"view"`
}

// newTestServer starts a server whose watcher has loaded the table.
func newTestServer(t *testing.T, app *apptest.Mock, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}
	srv, err := New(app, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Start()
	if err := srv.Watcher().Refresh(t.Context()); err != nil {
		t.Fatalf("watcher refresh: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return srv, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return v
}

// TestServerInitialization checks that New and Shutdown complete without
// blocking, with and without Start.
func TestServerInitialization(t *testing.T) {
	for _, start := range []bool{false, true} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			srv, err := New(newTestApplication(), DefaultConfig())
			if err != nil {
				t.Errorf("New: %v", err)
				return
			}
			if start {
				srv.Start()
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown: %v", err)
			}
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("server lifecycle (start=%v) did not complete", start)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t, newTestApplication(), Config{})

	status, _ := do(t, ts, http.MethodGet, "/health", nil)
	if status != http.StatusOK {
		t.Errorf("/health status = %d", status)
	}

	status, env := do(t, ts, http.MethodGet, "/api/v1/ready", nil)
	if status != http.StatusOK {
		t.Fatalf("/ready status = %d, error = %+v", status, env.Error)
	}
	ready := decodeData[map[string]any](t, env)
	if ready["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", ready["rows"])
	}
}

func TestReadyBeforeFirstLoad(t *testing.T) {
	app := newTestApplication()
	app.Gateway.Intercept(func(context.Context, gateway.Call) error {
		return errors.NewAPIError("memory", http.StatusServiceUnavailable, "backend down")
	})

	srv, err := New(app, Config{PathPrefix: "/api/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	_ = srv.Watcher().Refresh(t.Context())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "backend down") {
		t.Errorf("body %s does not carry the last error", rec.Body.String())
	}
}

func TestViewerEditAndSave(t *testing.T) {
	app := newTestApplication()
	srv, ts := newTestServer(t, app, Config{})

	status, env := do(t, ts, http.MethodPost, "/api/v1/viewers", map[string]any{"page": 1})
	if status != http.StatusCreated {
		t.Fatalf("open status = %d, error = %+v", status, env.Error)
	}
	opened := decodeData[viewerBody](t, env)
	if opened.View.Row == nil || opened.View.Row.Fields[0] != "Ada" {
		t.Fatalf("opened view row = %+v", opened.View.Row)
	}
	if srv.Viewers().Len() != 1 {
		t.Errorf("registry holds %d viewers", srv.Viewers().Len())
	}
	base := "/api/v1/viewers/" + opened.ID

	// A draft needs an open edit.
	status, env = do(t, ts, http.MethodPut, base+"/draft", map[string]any{"text": "early"})
	if status != http.StatusConflict || env.Error.Code != "INVALID_STATE" {
		t.Errorf("draft before edit: %d %+v", status, env.Error)
	}

	if status, env = do(t, ts, http.MethodPost, base+"/edit", nil); status != http.StatusOK {
		t.Fatalf("edit: %d %+v", status, env.Error)
	}
	if status, env = do(t, ts, http.MethodPut, base+"/draft", map[string]any{"text": "invite"}); status != http.StatusOK {
		t.Fatalf("draft: %d %+v", status, env.Error)
	}
	status, env = do(t, ts, http.MethodPost, base+"/save", nil)
	if status != http.StatusOK {
		t.Fatalf("save: %d %+v", status, env.Error)
	}
	saved := decodeData[viewerBody](t, env)
	if saved.View.Annotation != "invite" || saved.View.Editing() {
		t.Errorf("after save: annotation %q, editing %v", saved.View.Annotation, saved.View.Editing())
	}
	if got := app.Gateway.Values(testTable, testSheet)[1][2]; got != "invite" {
		t.Errorf("remote annotation = %q", got)
	}

	status, _ = do(t, ts, http.MethodDelete, base, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete status = %d", status)
	}
	status, env = do(t, ts, http.MethodGet, base, nil)
	if status != http.StatusNotFound {
		t.Errorf("get after delete: %d %+v", status, env.Error)
	}
}

func TestViewerSaveConflict(t *testing.T) {
	app := newTestApplication()
	_, ts := newTestServer(t, app, Config{})

	_, env := do(t, ts, http.MethodPost, "/api/v1/viewers", map[string]any{"page": 1})
	base := "/api/v1/viewers/" + decodeData[viewerBody](t, env).ID

	do(t, ts, http.MethodPost, base+"/edit", nil)
	do(t, ts, http.MethodPut, base+"/draft", map[string]any{"text": "mine"})

	// Another reviewer annotates the same row.
	app.Gateway.SetCell(testTable, testSheet, 3, 2, "theirs")

	status, env := do(t, ts, http.MethodPost, base+"/save", nil)
	if status != http.StatusConflict {
		t.Fatalf("save status = %d, want 409", status)
	}
	if env.Error == nil || env.Error.Code != "CONFLICT" || env.Error.Notice == nil {
		t.Fatalf("conflict error = %+v", env.Error)
	}
	if env.Error.Notice.RemoteValue != "theirs" || env.Error.Notice.Draft != "mine" {
		t.Errorf("notice = %+v", env.Error.Notice)
	}

	status, env = do(t, ts, http.MethodPost, base+"/conflict", map[string]any{"adopt": true})
	if status != http.StatusOK {
		t.Fatalf("adopt: %d %+v", status, env.Error)
	}
	v := decodeData[viewerBody](t, env).View
	if v.Session.Notice != nil || v.Session.Draft != "theirs" {
		t.Errorf("after adopt: %+v", v.Session)
	}
}

func TestViewerNavigation(t *testing.T) {
	_, ts := newTestServer(t, newTestApplication(), Config{})

	_, env := do(t, ts, http.MethodPost, "/api/v1/viewers", map[string]any{
		"page":   1,
		"filter": map[string]any{"column": "B", "value": "AI"},
	})
	opened := decodeData[viewerBody](t, env)
	if opened.View.Pagination.Total != 2 {
		t.Fatalf("filtered total = %d, want 2", opened.View.Pagination.Total)
	}
	base := "/api/v1/viewers/" + opened.ID

	status, env := do(t, ts, http.MethodPost, base+"/next", nil)
	if status != http.StatusOK {
		t.Fatalf("next: %d %+v", status, env.Error)
	}
	if row := decodeData[viewerBody](t, env).View.Row; row == nil || row.Fields[0] != "Linus" {
		t.Errorf("next row = %+v", row)
	}

	status, env = do(t, ts, http.MethodPost, base+"/filter", map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("clear filter: %d %+v", status, env.Error)
	}
	if v := decodeData[viewerBody](t, env).View; v.Filter != nil || v.Pagination.Total != 3 {
		t.Errorf("after clearing: filter %+v, total %d", v.Filter, v.Pagination.Total)
	}

	// An out-of-range page is the loading state, not an error.
	status, env = do(t, ts, http.MethodPost, base+"/page", map[string]any{"page": 9})
	if status != http.StatusOK {
		t.Fatalf("page 9: %d %+v", status, env.Error)
	}
	if v := decodeData[viewerBody](t, env).View; !v.Loading || v.Row != nil {
		t.Errorf("page 9: loading %v, row %+v", v.Loading, v.Row)
	}

	status, env = do(t, ts, http.MethodPost, base+"/previous", nil)
	if status != http.StatusOK {
		t.Errorf("previous: %d %+v", status, env.Error)
	}

	status, _ = do(t, ts, http.MethodPost, base+"/page", map[string]any{"page": 1, "bogus": true})
	if status != http.StatusBadRequest {
		t.Errorf("unknown field: status %d", status)
	}
}

func TestTableAndColumns(t *testing.T) {
	srv, ts := newTestServer(t, newTestApplication(), Config{})

	status, env := do(t, ts, http.MethodGet, "/api/v1/table?column=Track&value=x", nil)
	if status != http.StatusBadRequest {
		t.Errorf("bad column: %d", status)
	}

	status, env = do(t, ts, http.MethodGet, "/api/v1/table?column=1&value=cyber", nil)
	if status != http.StatusOK {
		t.Fatalf("table: %d %+v", status, env.Error)
	}
	tbl := decodeData[map[string]any](t, env)
	if tbl["count"] != float64(1) {
		t.Errorf("count = %v, want 1", tbl["count"])
	}
	if srv.Cache().ItemCount() != 1 {
		t.Errorf("cache items = %d, want 1", srv.Cache().ItemCount())
	}

	for path, want := range map[string]string{
		"/api/v1/columns/60": "BH",
		"/api/v1/columns/BH": "BH",
		"/api/v1/columns/1":  "A",
	} {
		status, env := do(t, ts, http.MethodGet, path, nil)
		if status != http.StatusOK {
			t.Errorf("%s: %d %+v", path, status, env.Error)
			continue
		}
		if got := decodeData[map[string]any](t, env)["letter"]; got != want {
			t.Errorf("%s letter = %v, want %s", path, got, want)
		}
	}

	if status, _ := do(t, ts, http.MethodGet, "/api/v1/columns/0", nil); status != http.StatusBadRequest {
		t.Errorf("column 0: status %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, newTestApplication(), DefaultConfig())
	do(t, ts, http.MethodGet, "/api/v1/health", nil)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sheetreview_polls_total") {
		t.Error("metrics output lacks poll counters")
	}
	if !strings.Contains(string(body), "sheetreview_http_requests_total") {
		t.Error("metrics output lacks request counters")
	}
}

func TestAuthRequired(t *testing.T) {
	t.Setenv(middleware.APIKeyEnv, "secret")
	_, ts := newTestServer(t, newTestApplication(), Config{AuthEnabled: true})

	if status, _ := do(t, ts, http.MethodGet, "/api/v1/ready", nil); status != http.StatusOK {
		t.Errorf("ready should stay public, got %d", status)
	}
	if status, _ := do(t, ts, http.MethodGet, "/api/v1/table", nil); status != http.StatusUnauthorized {
		t.Errorf("table without key: %d", status)
	}
	if status, _ := do(t, ts, http.MethodGet, "/api/v1/table?api_key=secret", nil); status != http.StatusOK {
		t.Errorf("table with key: %d", status)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := []func(*Config){
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.Port = 70000 },
		func(c *Config) { c.PathPrefix = "api" },
		func(c *Config) { c.RateLimit = -1 },
		func(c *Config) { c.MaxViewers = -5 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.IsValidationError(err) {
			t.Errorf("case %d: Validate() = %v, want validation error", i, err)
		}
	}
}

func TestConfigDefaultsAndAddr(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 9090, PathPrefix: "/api/v1/"}.withDefaults()
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s", cfg.Addr())
	}
	if cfg.PathPrefix != "/api/v1" {
		t.Errorf("PathPrefix = %s", cfg.PathPrefix)
	}
	if cfg.AuthHeader != "X-API-Key" || cfg.MaxViewers == 0 || cfg.CacheTTL == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
