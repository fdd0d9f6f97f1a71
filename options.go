package sheetreview

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Option configures a Client.
type Option func(*options) error

// options holds the resolved configuration of a Client.
type options struct {
	tableID          string
	sheetName        string
	lastColumn       int
	annotationColumn int // -1 selects the last header column

	pollingEnabled bool
	pollInterval   time.Duration
	pollTimeout    time.Duration
	saveTimeout    time.Duration

	page   int
	filter *view.Criterion

	sectionColumns    []int
	sectionVocabulary []string

	cache    SnapshotCache
	recorder Recorder
	logger   *zerolog.Logger
}

func defaults() *options {
	return &options{
		sheetName:         constants.DefaultSheetName,
		lastColumn:        constants.DefaultLastColumn,
		annotationColumn:  -1,
		pollingEnabled:    true,
		pollInterval:      constants.DefaultPollInterval,
		pollTimeout:       constants.PollTimeout,
		saveTimeout:       constants.SaveTimeout,
		page:              1,
		sectionVocabulary: slices.Clone(constants.DefaultSectionVocabulary),
		recorder:          nopRecorder{},
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.tableID == "" {
		return nil, errors.NewConfigError("client", "spreadsheet ID is required", nil)
	}
	return o, nil
}

// WithSpreadsheetID sets the remote table to read and write.
func WithSpreadsheetID(id string) Option {
	return func(o *options) error {
		o.tableID = id
		return nil
	}
}

// WithSheetName sets the worksheet holding the responses.
func WithSheetName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.NewValidationError("sheetName", name, "sheet name cannot be empty")
		}
		o.sheetName = name
		return nil
	}
}

// WithLastColumn sets the 1-based ordinal of the right-most column fetched.
func WithLastColumn(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("lastColumn", n, "column ordinal must be positive")
		}
		o.lastColumn = n
		return nil
	}
}

// WithAnnotationColumn sets the 0-based column holding reviewer comments.
// A negative value selects the last header column.
func WithAnnotationColumn(col int) Option {
	return func(o *options) error {
		if col < 0 {
			col = -1
		}
		o.annotationColumn = col
		return nil
	}
}

// WithPolling enables or disables background polling at construction.
func WithPolling(enabled bool) Option {
	return func(o *options) error {
		o.pollingEnabled = enabled
		return nil
	}
}

// WithPollInterval sets the time between polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("pollInterval", d, "poll interval must be positive")
		}
		o.pollInterval = d
		return nil
	}
}

// WithPollTimeout bounds each poll fetch.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("pollTimeout", d, "poll timeout must be positive")
		}
		o.pollTimeout = d
		return nil
	}
}

// WithSaveTimeout bounds the read-compare-write save sequence.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("saveTimeout", d, "save timeout must be positive")
		}
		o.saveTimeout = d
		return nil
	}
}

// WithPage sets the initial 1-based page.
func WithPage(page int) Option {
	return func(o *options) error {
		o.page = page
		return nil
	}
}

// WithFilter sets the initial filter criterion. nil shows every row.
func WithFilter(c *view.Criterion) Option {
	return func(o *options) error {
		if err := c.Validate(0); err != nil {
			return err
		}
		if c != nil {
			cp := *c
			c = &cp
		}
		o.filter = c
		return nil
	}
}

// WithSections sets the 0-based section-choice columns, in rank order, and
// the recognized section labels. A nil vocabulary keeps the default.
func WithSections(columns []int, vocabulary []string) Option {
	return func(o *options) error {
		if len(columns) > constants.SectionCount {
			return errors.NewValidationError("sectionColumns", columns, "at most four section columns")
		}
		for _, col := range columns {
			if col < 0 {
				return errors.NewValidationError("sectionColumns", columns, "section columns must be non-negative")
			}
		}
		o.sectionColumns = slices.Clone(columns)
		if vocabulary != nil {
			o.sectionVocabulary = slices.Clone(vocabulary)
		}
		return nil
	}
}

// WithSnapshotCache enables warm start from, and persistence to, cache.
func WithSnapshotCache(cache SnapshotCache) Option {
	return func(o *options) error {
		o.cache = cache
		return nil
	}
}

// WithRecorder reports poll, save and conflict outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) error {
		if r == nil {
			r = nopRecorder{}
		}
		o.recorder = r
		return nil
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
