package sheetreview

import (
	"sync"

	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for table and view events
type (
	// RowAddedHook is called for each row that appears in a new snapshot
	RowAddedHook func(row table.Row)

	// RowUpdatedHook is called for each row whose fields changed
	RowUpdatedHook func(old, new table.Row)

	// RowRemovedHook is called for each row missing from a new snapshot
	RowRemovedHook func(row table.Row)

	// ViewChangedHook is called when the row in view is replaced
	ViewChangedHook func(row table.Row)

	// ConflictHook is called when a conflict notice is raised or refreshed
	ConflictHook func(notice session.Notice)

	// SavedHook is called after an annotation is written
	SavedHook func(row table.Row)

	// PollFailedHook is called when a poll fetch fails
	PollFailedHook func(err error)
)

// Hooks provides event callback registration. Callbacks run on the
// goroutine that detected the event, outside the client's locks.
type Hooks interface {
	OnRowAdded(RowAddedHook)
	OnRowUpdated(RowUpdatedHook)
	OnRowRemoved(RowRemovedHook)
	OnViewChanged(ViewChangedHook)
	OnConflict(ConflictHook)
	OnSaved(SavedHook)
	OnPollFailed(PollFailedHook)
}

// hooks manages event callbacks
type hooks struct {
	mu            sync.RWMutex
	onRowAdded    []RowAddedHook
	onRowUpdated  []RowUpdatedHook
	onRowRemoved  []RowRemovedHook
	onViewChanged []ViewChangedHook
	onConflict    []ConflictHook
	onSaved       []SavedHook
	onPollFailed  []PollFailedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnRowAdded registers a callback for rows that appear remotely.
func (c *client) OnRowAdded(fn RowAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRowAdded = append(c.hooks.onRowAdded, fn)
}

// OnRowUpdated registers a callback for rows changed remotely.
func (c *client) OnRowUpdated(fn RowUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRowUpdated = append(c.hooks.onRowUpdated, fn)
}

// OnRowRemoved registers a callback for rows removed remotely.
func (c *client) OnRowRemoved(fn RowRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRowRemoved = append(c.hooks.onRowRemoved, fn)
}

// OnViewChanged registers a callback for updates of the row in view.
func (c *client) OnViewChanged(fn ViewChangedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onViewChanged = append(c.hooks.onViewChanged, fn)
}

// OnConflict registers a callback for conflict notices.
func (c *client) OnConflict(fn ConflictHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onConflict = append(c.hooks.onConflict, fn)
}

// OnSaved registers a callback for successful saves.
func (c *client) OnSaved(fn SavedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSaved = append(c.hooks.onSaved, fn)
}

// OnPollFailed registers a callback for failed polls.
func (c *client) OnPollFailed(fn PollFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPollFailed = append(c.hooks.onPollFailed, fn)
}

// events collects what happened under the state lock so hooks can fire
// after it is released.
type events struct {
	changes  table.Changeset
	view     *table.Row
	conflict *session.Notice
	saved    *table.Row
	failure  error
}

func (h *hooks) fire(ev events) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range ev.changes.Added {
		for _, hook := range h.onRowAdded {
			hook(r)
		}
	}
	for _, u := range ev.changes.Updated {
		for _, hook := range h.onRowUpdated {
			hook(u.Old, u.New)
		}
	}
	for _, r := range ev.changes.Removed {
		for _, hook := range h.onRowRemoved {
			hook(r)
		}
	}
	if ev.view != nil {
		for _, hook := range h.onViewChanged {
			hook(*ev.view)
		}
	}
	if ev.conflict != nil {
		for _, hook := range h.onConflict {
			hook(*ev.conflict)
		}
	}
	if ev.saved != nil {
		for _, hook := range h.onSaved {
			hook(*ev.saved)
		}
	}
	if ev.failure != nil {
		for _, hook := range h.onPollFailed {
			hook(ev.failure)
		}
	}
}
