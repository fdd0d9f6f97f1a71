package sheetreview

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Compile-time interface check to ensure proper implementation.
var _ Poller = (*client)(nil)

// Poller provides controls for background polling of the remote table.
type Poller interface {
	// PollingOn starts polling; the first fetch happens immediately
	PollingOn() error

	// PollingOff stops polling
	PollingOff() error

	// Refresh fetches the remote table once, waiting for any in-flight save
	Refresh(ctx context.Context) error
}

// PollingOn starts background polling at the configured interval.
func (c *client) PollingOn() error {
	if c.options.pollInterval <= 0 {
		return &errors.ValidationError{
			Field:   "pollInterval",
			Value:   c.options.pollInterval,
			Message: "poll interval must be positive",
		}
	}

	if err := c.PollingOff(); err != nil {
		return err
	}

	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.closed {
		return errors.ErrClosed
	}

	c.stopCh = make(chan struct{})
	c.ticker = time.NewTicker(c.options.pollInterval)
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel

	c.pollWG.Add(1)
	go c.pollLoop(ctx, c.ticker, c.stopCh)

	c.logger.Debug().Dur("interval", c.options.pollInterval).Msg("Polling started")
	return nil
}

// PollingOff stops background polling. An in-flight fetch is canceled.
func (c *client) PollingOff() error {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	return nil
}

// resetTicker restarts the poll interval, used after the cursor moves so
// the next poll is a full interval after navigation.
func (c *client) resetTicker() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.ticker != nil {
		c.ticker.Reset(c.options.pollInterval)
	}
}

func (c *client) pollLoop(ctx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
	defer c.pollWG.Done()

	c.tick(ctx)
	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		}
	}
}

// tick runs one poll unless a poll or save is already in flight.
func (c *client) tick(parent context.Context) {
	if !c.opMu.TryLock() {
		c.options.recorder.PollCompleted(ResultSkipped, 0)
		c.logger.Debug().Msg("Poll skipped, previous operation still running")
		return
	}
	defer c.opMu.Unlock()

	ctx, cancel := context.WithTimeout(parent, c.options.pollTimeout)
	err := c.poll(ctx)
	cancel()

	if err != nil && parent.Err() == nil {
		c.logger.Error().Err(err).Msg("Poll failed")
	}
}

// Refresh fetches the remote table once. It waits for an in-flight poll or
// save to finish instead of skipping.
func (c *client) Refresh(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.poll(ctx)
}

// poll fetches the table and reconciles the view with it. Callers hold opMu.
func (c *client) poll(ctx context.Context) error {
	start := time.Now()
	values, err := c.gw.GetRange(ctx, c.options.tableID, c.fetchRange)
	if err != nil {
		ferr := errors.NewFetchError(c.options.tableID, c.fetchRange, err)
		c.mu.Lock()
		c.lastErr = ferr
		c.mu.Unlock()
		c.options.recorder.PollCompleted(ResultError, time.Since(start))
		c.hooks.fire(events{failure: ferr})
		return ferr
	}

	next := table.FromValues(values)

	c.mu.Lock()
	var ev events
	if c.store.Loaded() {
		ev.changes = table.Diff(c.store.Table(), next)
	}
	c.store.Replace(next)
	if stderrors.As(c.lastErr, new(*errors.FetchError)) {
		c.lastErr = nil
	}
	c.reconcile(next, &ev)
	c.mu.Unlock()

	c.options.recorder.PollCompleted(ResultOK, time.Since(start))
	if ev.conflict != nil {
		c.options.recorder.ConflictRaised(string(ev.conflict.Source))
	}
	c.logger.Debug().
		Int("rows", next.Len()).
		Int("added", len(ev.changes.Added)).
		Int("updated", len(ev.changes.Updated)).
		Int("removed", len(ev.changes.Removed)).
		Msg("Poll complete")

	c.hooks.fire(ev)
	return nil
}

// reconcile applies a freshly fetched table to the row in view. Callers
// hold c.mu.
//
// While viewing, a changed row is accepted and the draft re-derived from
// it. While an edit is open, a changed row raises or refreshes the conflict
// notice and nothing the reviewer typed is touched.
func (c *client) reconcile(next table.Table, ev *events) {
	if c.pinned == 0 {
		c.resolve(next, ev)
		return
	}

	current, ok := next.Row(c.pinned)
	if !ok {
		c.vanished(next, ev)
		return
	}

	if prev, ok := c.store.Observed(); ok && prev.Equal(current) {
		return
	}

	col := c.annotationColumn(next.Width())
	switch c.sess.State() {
	case session.Viewing:
		c.accept(current, col)
		ev.view = &current
	default:
		if n, ok := c.sess.Notice(); ok && n.Row.Equal(current) {
			return
		}
		notice, err := c.sess.Conflict(session.SourcePoll, current, current.Field(col))
		if err == nil {
			ev.conflict = &notice
			c.logger.Info().
				Int("row", current.Index).
				Str("state", c.sess.State().String()).
				Msg("Remote change while editing, conflict raised")
		}
	}
}

// vanished handles a pinned row that is gone from next. A viewer moves on
// to whatever now sits at its page; an open edit gets a removed-row notice
// and keeps its draft. Callers hold c.mu.
func (c *client) vanished(next table.Table, ev *events) {
	if c.sess.State() == session.Viewing {
		c.pinned = 0
		c.store.Forget()
		c.resolve(next, ev)
		return
	}
	if n, ok := c.sess.Notice(); ok && n.Removed {
		return
	}
	notice, err := c.sess.Vanished(session.SourcePoll)
	if err != nil {
		return
	}
	ev.conflict = &notice
	c.logger.Info().
		Int("row", notice.RowIndex).
		Msg("Row removed remotely while editing, conflict raised")
}

// resolve pins the row at the current page and filter, if there is one.
// Callers hold c.mu.
func (c *client) resolve(t table.Table, ev *events) {
	rows := view.Filter(t, c.filter)
	r, ok := view.Resolve(rows, c.page)
	if !ok {
		c.pinned = 0
		c.store.Forget()
		c.sess.Reset("")
		return
	}
	c.pinned = r.Index
	c.accept(r, c.annotationColumn(t.Width()))
	if ev != nil {
		ev.view = &r
	}
}

// accept makes r the row in view. Callers hold c.mu.
func (c *client) accept(r table.Row, col int) {
	c.store.Observe(r)
	c.sess.Show(r.Field(col))
}
