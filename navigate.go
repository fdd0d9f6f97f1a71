package sheetreview

import (
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Compile-time interface check to ensure proper implementation.
var _ Navigator = (*client)(nil)

// Navigator moves the viewer's cursor. The cursor cannot move while an edit
// is open; finish, cancel or acknowledge it first.
type Navigator interface {
	// SetPage moves to a 1-based page of the filtered rows. Pages outside
	// the range are accepted and show the loading state.
	SetPage(page int) error

	// SetFilter replaces the filter criterion; nil clears it
	SetFilter(c *view.Criterion) error

	// Next moves one page forward when there is a next page
	Next() error

	// Previous moves one page back when there is a previous page
	Previous() error
}

// SetPage moves the cursor to page.
func (c *client) SetPage(page int) error {
	return c.moveCursor("set page", func() error {
		c.page = page
		return nil
	})
}

// SetFilter replaces the filter criterion.
func (c *client) SetFilter(criterion *view.Criterion) error {
	return c.moveCursor("set filter", func() error {
		if err := criterion.Validate(c.store.Table().Width()); err != nil {
			return err
		}
		if criterion != nil {
			cp := *criterion
			criterion = &cp
		}
		c.filter = criterion
		return nil
	})
}

// Next moves to the following page.
func (c *client) Next() error {
	return c.moveCursor("next page", func() error {
		p := view.Paginate(c.page, len(view.Filter(c.store.Table(), c.filter)))
		if !p.HasNext {
			return errors.NewValidationError("page", c.page, "already on the last page")
		}
		c.page++
		return nil
	})
}

// Previous moves to the preceding page.
func (c *client) Previous() error {
	return c.moveCursor("previous page", func() error {
		if c.page <= 1 {
			return errors.NewValidationError("page", c.page, "already on the first page")
		}
		c.page--
		return nil
	})
}

// moveCursor applies change under the state lock, re-resolves the row in
// view against the current snapshot and restarts the poll interval.
func (c *client) moveCursor(op string, change func() error) error {
	c.mu.Lock()
	if c.sess.Active() {
		state := c.sess.State().String()
		c.mu.Unlock()
		return errors.NewStateError(op, state, "finish or cancel the edit first")
	}
	if err := change(); err != nil {
		c.mu.Unlock()
		return err
	}

	var ev events
	c.pinned = 0
	c.store.Forget()
	if c.store.Loaded() {
		c.resolve(c.store.Table(), &ev)
	} else {
		c.sess.Reset("")
	}
	c.mu.Unlock()

	c.resetTicker()
	c.hooks.fire(ev)
	return nil
}
