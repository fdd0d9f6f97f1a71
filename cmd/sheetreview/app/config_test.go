package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// isolate points HOME and the working directory at an empty directory so
// no user config or .env file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

// TestLoadConfig verifies defaults.
func TestLoadConfig(t *testing.T) {
	isolate(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Backend != BackendSheets {
		t.Errorf("Backend = %q, want %q", config.Backend, BackendSheets)
	}
	if config.SheetName != constants.DefaultSheetName {
		t.Errorf("SheetName = %q, want %q", config.SheetName, constants.DefaultSheetName)
	}
	if config.LastColumn != "BH" {
		t.Errorf("LastColumn = %q, want BH", config.LastColumn)
	}
	if config.PollInterval != constants.DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", config.PollInterval, constants.DefaultPollInterval)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", config.Server.Port)
	}
	// LogLevel may be empty (triggers precedence logic in logger.go)
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
}

// TestConfig_EnvironmentVariables verifies SHEETREVIEW_* loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("SHEETREVIEW_SPREADSHEET_ID", "1UmwPG")
	t.Setenv("SHEETREVIEW_POLL_INTERVAL", "45s")
	t.Setenv("SHEETREVIEW_ANNOTATION_COLUMN", "BH")
	t.Setenv("SHEETREVIEW_BACKEND", "XLSX")
	t.Setenv("SHEETREVIEW_SERVER_PORT", "9090")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.SpreadsheetID != "1UmwPG" {
		t.Errorf("SpreadsheetID = %q, want 1UmwPG", config.SpreadsheetID)
	}
	if config.PollInterval != 45*time.Second {
		t.Errorf("PollInterval = %v, want 45s", config.PollInterval)
	}
	if config.AnnotationColumn != "BH" {
		t.Errorf("AnnotationColumn = %q, want BH", config.AnnotationColumn)
	}
	if config.Backend != BackendXLSX {
		t.Errorf("Backend = %q, want xlsx", config.Backend)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", config.Server.Port)
	}
}

// TestConfig_File verifies an explicit YAML config file.
func TestConfig_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "review.yaml")
	content := `backend: xlsx
workbook_path: ~/forms/responses.xlsx
sheet_name: Sheet1
section_columns: [D, E]
server:
  port: 7000
  auth: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() failed: %v", err)
	}

	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}
	if config.TableID() != "responses.xlsx" {
		t.Errorf("TableID() = %q, want responses.xlsx", config.TableID())
	}
	if got := ExpandPath(config.WorkbookPath); got != filepath.Join(dir, "forms", "responses.xlsx") {
		t.Errorf("ExpandPath(WorkbookPath) = %q", got)
	}
	if len(config.SectionColumns) != 2 || config.SectionColumns[1] != "E" {
		t.Errorf("SectionColumns = %v, want [D E]", config.SectionColumns)
	}
	if config.Server.Port != 7000 || !config.Server.Auth {
		t.Errorf("Server = %+v", config.Server)
	}
}

// TestConfig_MissingExplicitFile verifies that a named file must exist.
func TestConfig_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Fatal("LoadConfigFile() succeeded for a missing file")
	}
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %T, want *errors.ConfigError", err)
	}
}

// TestConfig_DotEnv verifies .env loading from the working directory.
func TestConfig_DotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHEETREVIEW_SHEET_NAME=Responses\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SHEETREVIEW_SHEET_NAME") })

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.SheetName != "Responses" {
		t.Errorf("SheetName = %q, want Responses", config.SheetName)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sheets with id", Config{Backend: BackendSheets, SpreadsheetID: "abc", PollInterval: time.Minute}, false},
		{"sheets without id", Config{Backend: BackendSheets, PollInterval: time.Minute}, true},
		{"xlsx with workbook", Config{Backend: BackendXLSX, WorkbookPath: "a.xlsx", PollInterval: time.Minute}, false},
		{"xlsx without workbook", Config{Backend: BackendXLSX, PollInterval: time.Minute}, true},
		{"unknown backend", Config{Backend: "csv", PollInterval: time.Minute}, true},
		{"interval too short", Config{Backend: BackendSheets, SpreadsheetID: "abc", PollInterval: time.Millisecond}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_UpdateSource(t *testing.T) {
	config := &Config{Backend: BackendSheets, SpreadsheetID: "abc", SheetName: "Form Responses 1"}

	config.UpdateSource("", "", "Sheet2", "", "")
	if config.SpreadsheetID != "abc" || config.SheetName != "Sheet2" {
		t.Errorf("empty flags must keep config: %+v", config)
	}

	config.UpdateSource("", "", "", "local.xlsx", "")
	if config.Backend != BackendXLSX || config.WorkbookPath != "local.xlsx" {
		t.Errorf("--workbook should select the xlsx backend: %+v", config)
	}
}

func TestParseColumn(t *testing.T) {
	for in, want := range map[string]int{"A": 1, "BH": 60, "60": 60, "c": 3} {
		got, err := ParseColumn(in)
		if err != nil {
			t.Errorf("ParseColumn(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseColumn(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := ParseColumn("0"); !errors.IsValidationError(err) {
		t.Errorf("ParseColumn(0) error = %v, want validation error", err)
	}
}
