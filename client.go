// Package sheetreview keeps a reviewer's view of a shared spreadsheet in
// sync with the remote store while they annotate rows.
//
// A Client owns one viewer: it polls the remote table, maintains a local
// snapshot, resolves the row at the viewer's page and filter, and runs the
// edit session for that row's annotation column. Remote changes to the row
// in view are applied smoothly while the reviewer is only reading; once an
// edit is open they are surfaced as a conflict notice instead, and the
// local draft is never overwritten. Saves use an optimistic
// read-compare-write on the single annotation cell.
//
// Example usage:
//
//	gw := gateway.NewMemory() // or a Google Sheets / xlsx gateway
//	c, err := sheetreview.New(gw,
//	    sheetreview.WithSpreadsheetID("1UmwPG..."),
//	    sheetreview.WithPage(3),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.OnConflict(func(n session.Notice) {
//	    log.Printf("row %d changed remotely: %q", n.RowIndex, n.RemoteValue)
//	})
//
//	if err := c.BeginEdit(); err != nil { ... }
//	_ = c.UpdateDraft("Strong portfolio, invite to interview")
//	if err := c.Save(ctx); errors.IsConflict(err) { ... }
package sheetreview

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
	"github.com/agentstation/sheetreview/pkg/logging"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/snapshot"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Client is one reviewer's synchronized view of the remote table.
type Client interface {
	// Viewer provides read access to the derived view state
	Viewer

	// Navigator moves the cursor (page and filter)
	Navigator

	// Editor runs the annotation edit session
	Editor

	// Poller controls background polling
	Poller

	// Persistence handles the on-disk snapshot cache
	Persistence

	// Hooks provides access to event callback registration
	Hooks

	// Close stops polling and releases resources.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	gw      gateway.Gateway
	store   *snapshot.Store
	logger  zerolog.Logger

	// fetchRange is the full-table range polled every tick.
	fetchRange string

	// mu guards the cursor, the pinned row and the edit session.
	mu       sync.RWMutex
	page     int
	filter   *view.Criterion
	pinned   int // stable row index in view, 0 while loading
	sess     session.Session
	lastErr  error
	identity string

	// opMu serializes network sequences (poll, save). Polls skip rather
	// than queue when it is held.
	opMu sync.Mutex

	// polling state, guarded by pollMu
	pollMu     sync.Mutex
	ticker     *time.Ticker
	stopCh     chan struct{}
	pollCancel func()
	pollWG     sync.WaitGroup
	closed     bool

	hooks *hooks
}

// New creates a Client reading and writing through gw.
func New(gw gateway.Gateway, opts ...Option) (Client, error) {
	if gw == nil {
		return nil, errors.NewConfigError("client", "gateway is required", nil)
	}

	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	fetchRange, err := a1.Span(o.sheetName, 1, 1, o.lastColumn, 0)
	if err != nil {
		return nil, errors.NewConfigError("client", "invalid fetch range", err)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}

	c := &client{
		options:    o,
		gw:         gw,
		store:      snapshot.New(),
		logger:     logger.With().Str("spreadsheet_id", o.tableID).Str("sheet", o.sheetName).Logger(),
		fetchRange: fetchRange,
		page:       o.page,
		filter:     o.filter,
		stopCh:     make(chan struct{}),
		hooks:      newHooks(),
	}

	if o.cache != nil {
		c.warmStart()
	}

	if o.pollingEnabled {
		if err := c.PollingOn(); err != nil {
			return nil, errors.WrapResource("start", "polling", "", err)
		}
	}

	return c, nil
}

// annotationColumn resolves the 0-based annotation column for a table of
// the given width. -1 means the table has no columns yet.
func (c *client) annotationColumn(width int) int {
	if c.options.annotationColumn >= 0 {
		return c.options.annotationColumn
	}
	return width - 1
}
