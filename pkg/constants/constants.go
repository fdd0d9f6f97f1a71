// Package constants provides shared constants used throughout the sheetreview
// codebase: polling cadence, timeouts, remote range defaults, file
// permissions and buffer sizes.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the remote table API
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultPollInterval is the default interval between remote table polls
	DefaultPollInterval = 10 * time.Second

	// MinPollInterval is the shortest poll interval the CLI accepts
	MinPollInterval = 1 * time.Second

	// PollTimeout bounds a single poll fetch
	PollTimeout = 30 * time.Second

	// SaveTimeout bounds the read-compare-write save sequence
	SaveTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 10 * time.Second
)

// Remote table defaults
const (
	// DefaultSheetName is the worksheet the form writes responses into
	DefaultSheetName = "Form Responses 1"

	// DefaultLastColumn is the right-most column fetched by a poll ("BH")
	DefaultLastColumn = 60

	// HeaderRows is the number of header rows above the first data row
	HeaderRows = 1
)

// Section constants
const (
	// SectionCount is the number of fixed section-choice columns
	SectionCount = 4
)

// DefaultSectionVocabulary is the recognized section labels.
var DefaultSectionVocabulary = []string{"ai", "cyber", "design", "hack"}

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like credentials (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// ChannelBufferSize is the default buffer size for event channels
	ChannelBufferSize = 256

	// MaxAnnotationLength caps a single reviewer comment (the remote cell limit)
	MaxAnnotationLength = 50000

	// MaxViewers caps concurrently open viewers on one server
	MaxViewers = 1000

	// MaxRequestBody caps JSON request bodies accepted by the API
	MaxRequestBody = 1 << 20
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached API responses
	CacheTTL = 15 * time.Minute

	// TableCacheTTL is how long a rendered /table response is reused
	TableCacheTTL = 1 * time.Minute

	// ViewerIdleTTL closes server viewers nobody has touched for this long
	ViewerIdleTTL = 30 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute

	// SnapshotCacheSize is the in-memory budget of the on-disk snapshot cache in bytes
	SnapshotCacheSize = 8 * 1024 * 1024
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per minute per client IP
	DefaultRateLimit = 120
)

// Path constants
const (
	// DefaultConfigDir is the default directory for configuration and cache files
	DefaultConfigDir = "~/.sheetreview"

	// DefaultCachePath is the default path for the snapshot cache
	DefaultCachePath = "~/.sheetreview/cache"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)

// Output format names accepted by --format
const (
	FormatTable = "table"
	FormatWide  = "wide"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)
