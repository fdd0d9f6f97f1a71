package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// Backends accepted by --backend.
const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
)

// EnvPrefix prefixes every environment variable the CLI reads, e.g.
// SHEETREVIEW_SPREADSHEET_ID.
const EnvPrefix = "SHEETREVIEW"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Remote table
	Backend          string
	SpreadsheetID    string
	SheetName        string
	LastColumn       string // column label or 1-based number
	AnnotationColumn string // column label or 1-based number; empty selects the last header
	WorkbookPath     string
	CredentialsFile  string

	// Polling
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Snapshot cache
	CachePath    string
	CacheEnabled bool

	// Sections
	SectionColumns    []string
	SectionVocabulary []string

	// Server
	Server ServerConfig

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// ServerConfig holds the serve command settings.
type ServerConfig struct {
	Host        string
	Port        int
	Prefix      string
	CORS        bool
	CORSOrigins []string
	Auth        bool
	AuthHeader  string
	RateLimit   int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSheets)
	v.SetDefault("sheet_name", constants.DefaultSheetName)
	v.SetDefault("last_column", a1.MustColumnLetter(constants.DefaultLastColumn))
	v.SetDefault("poll_interval", constants.DefaultPollInterval)
	v.SetDefault("poll_timeout", constants.PollTimeout)
	v.SetDefault("cache_path", constants.DefaultCachePath)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("section_vocabulary", constants.DefaultSectionVocabulary)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.prefix", "/api/v1")
	v.SetDefault("server.auth_header", "X-API-Key")
	v.SetDefault("server.rate_limit", constants.DefaultRateLimit)
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (SHEETREVIEW_*)
// 3. .env files
// 4. Config file (~/.sheetreview.yaml or ./.sheetreview.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), "")
}

// LoadConfigFile is LoadConfig with an explicit config file.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".sheetreview")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Backend:          strings.ToLower(v.GetString("backend")),
		SpreadsheetID:    v.GetString("spreadsheet_id"),
		SheetName:        v.GetString("sheet_name"),
		LastColumn:       v.GetString("last_column"),
		AnnotationColumn: v.GetString("annotation_column"),
		WorkbookPath:     v.GetString("workbook_path"),
		CredentialsFile:  v.GetString("credentials_file"),

		PollInterval: v.GetDuration("poll_interval"),
		PollTimeout:  v.GetDuration("poll_timeout"),

		CachePath:    v.GetString("cache_path"),
		CacheEnabled: v.GetBool("cache_enabled"),

		SectionColumns:    v.GetStringSlice("section_columns"),
		SectionVocabulary: v.GetStringSlice("section_vocabulary"),

		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			Prefix:      v.GetString("server.prefix"),
			CORS:        v.GetBool("server.cors"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			Auth:        v.GetBool("server.auth"),
			AuthHeader:  v.GetString("server.auth_header"),
			RateLimit:   v.GetInt("server.rate_limit"),
		},

		// Logging configuration
		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// UpdateSource applies the table source flags. Empty values keep the
// configured settings.
func (c *Config) UpdateSource(backend, spreadsheetID, sheetName, workbook, credentials string) {
	if backend != "" {
		c.Backend = backend
	}
	if spreadsheetID != "" {
		c.SpreadsheetID = spreadsheetID
	}
	if sheetName != "" {
		c.SheetName = sheetName
	}
	if workbook != "" {
		c.WorkbookPath = workbook
		if backend == "" {
			c.Backend = BackendXLSX
		}
	}
	if credentials != "" {
		c.CredentialsFile = credentials
	}
}

// Validate checks the settings every client needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return errors.NewConfigError("config", "spreadsheet_id is required for the sheets backend (--spreadsheet or SHEETREVIEW_SPREADSHEET_ID)", nil)
		}
	case BackendXLSX:
		if c.WorkbookPath == "" {
			return errors.NewConfigError("config", "workbook_path is required for the xlsx backend (--workbook or SHEETREVIEW_WORKBOOK_PATH)", nil)
		}
	default:
		return errors.NewConfigError("config", "unknown backend "+strconv.Quote(c.Backend)+": must be sheets or xlsx", nil)
	}
	if c.PollInterval < constants.MinPollInterval {
		return errors.NewConfigError("config", "poll_interval must be at least "+constants.MinPollInterval.String(), nil)
	}
	return nil
}

// TableID returns the identifier passed to the gateway. The xlsx backend
// ignores it, so the workbook file name stands in.
func (c *Config) TableID() string {
	if c.Backend == BackendXLSX {
		return filepath.Base(c.WorkbookPath)
	}
	return c.SpreadsheetID
}

// ParseColumn reads a column label ("BH") or 1-based number ("60") and
// returns the 1-based ordinal.
func ParseColumn(s string) (int, error) {
	return a1.Ordinal(s)
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
