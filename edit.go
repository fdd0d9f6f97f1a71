package sheetreview

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/logging"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
)

// Compile-time interface check to ensure proper implementation.
var _ Editor = (*client)(nil)

// Editor runs the annotation edit session of the row in view.
type Editor interface {
	// BeginEdit opens an edit with the current annotation as baseline
	BeginEdit() error

	// UpdateDraft replaces the draft text; nothing is sent remotely
	UpdateDraft(text string) error

	// Cancel discards the draft
	Cancel() error

	// Save writes the draft if the remote annotation still equals the
	// baseline. A mismatch returns a ConflictError and leaves the edit open
	// with the draft intact; a gateway failure returns a SaveError, also
	// with the edit left open.
	Save(ctx context.Context) error

	// AcknowledgeConflict resolves a pending notice. adopt takes the remote
	// row and closes the edit; otherwise the draft is kept and the edit
	// continues against the remote value as its new baseline.
	AcknowledgeConflict(adopt bool) error
}

// BeginEdit opens an edit on the row in view.
func (c *client) BeginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pinned == 0 {
		return errors.NewStateError("begin edit", "loading", "no row in view")
	}
	row, ok := c.store.Observed()
	if !ok {
		return errors.NewStateError("begin edit", "loading", "no row in view")
	}
	col := c.annotationColumn(c.store.Table().Width())
	if col < 0 {
		return errors.NewStateError("begin edit", "loading", "table has no columns")
	}
	if err := c.sess.Begin(row.Index, row.Field(col)); err != nil {
		return err
	}
	c.lastErr = nil
	return nil
}

// UpdateDraft replaces the draft text.
func (c *client) UpdateDraft(text string) error {
	if n := utf8.RuneCountInString(text); n > constants.MaxAnnotationLength {
		return errors.NewValidationError("draft", n, "annotation exceeds the cell size limit")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.SetDraft(text)
}

// Cancel discards the draft and shows the annotation of the row in view.
func (c *client) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.store.Table()
	col := c.annotationColumn(t.Width())
	row, ok := t.Row(c.pinned)
	if err := c.sess.Cancel(row.Field(col)); err != nil {
		return err
	}
	if !ok {
		c.pinned = 0
		c.store.Forget()
		c.resolve(t, nil)
		return nil
	}
	c.store.Observe(row)
	return nil
}

// Save runs the optimistic read-compare-write on the annotation cell.
func (c *client) Save(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	start := time.Now()
	c.mu.Lock()
	if err := c.sess.CanSave(); err != nil {
		c.mu.Unlock()
		return err
	}
	index := c.sess.RowIndex()
	baseline := c.sess.Baseline()
	draft := c.sess.Draft()
	col := c.annotationColumn(c.store.Table().Width())
	c.mu.Unlock()

	ctx = logging.WithOperation(logging.WithRow(logging.Ensure(ctx, &c.logger), index), "save")
	logger := logging.FromContext(ctx)

	cell, err := a1.Cell(c.options.sheetName, col+1, index+1)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.saveTimeout)
	defer cancel()

	values, err := c.gw.GetRange(ctx, c.options.tableID, cell)
	if err != nil {
		return c.saveFailed(errors.NewSaveError("read", index, err), start)
	}
	remote := firstCell(values)

	c.mu.Lock()
	if !c.editing(index) {
		c.mu.Unlock()
		return errors.NewStateError("save", c.sessState(), "edit closed while saving")
	}
	if _, ok := c.store.Row(index); !ok {
		notice, _ := c.sess.Vanished(session.SourceSave)
		c.mu.Unlock()

		c.options.recorder.SaveCompleted(ResultConflict, time.Since(start))
		c.options.recorder.ConflictRaised(string(session.SourceSave))
		logger.Info().Str("cell", cell).Msg("Row no longer exists, save withheld")
		c.hooks.fire(events{conflict: &notice})
		return errors.NewConflictError(string(session.SourceSave), index, "", baseline, notice)
	}
	if remote != baseline {
		row, _ := c.store.Observed()
		row = row.With(col, remote)
		notice, _ := c.sess.Conflict(session.SourceSave, row, remote)
		c.mu.Unlock()

		c.options.recorder.SaveCompleted(ResultConflict, time.Since(start))
		c.options.recorder.ConflictRaised(string(session.SourceSave))
		logger.Info().Str("cell", cell).Msg("Annotation changed remotely since edit began, save withheld")
		c.hooks.fire(events{conflict: &notice})
		return errors.NewConflictError(string(session.SourceSave), index, remote, baseline, notice)
	}
	c.mu.Unlock()

	if err := c.gw.UpdateRange(ctx, c.options.tableID, cell, [][]string{{draft}}); err != nil {
		return c.saveFailed(errors.NewSaveError("write", index, err), start)
	}

	c.mu.Lock()
	saved, patched := c.store.PatchField(index, col, draft)
	if !patched {
		saved = table.Row{Index: index}.With(col, draft)
	}
	if c.pinned == index {
		c.store.Observe(saved)
	}
	if c.editing(index) {
		if c.sess.Draft() == draft {
			c.sess.Saved(draft)
		} else {
			// Typing continued during the write; keep the edit open against
			// what is now stored remotely.
			if err := c.sess.Rebase(draft); err != nil {
				logger.Warn().Err(err).Msg("Rebase after save failed")
			}
		}
	} else if c.pinned == index {
		c.sess.Show(draft)
	}
	c.lastErr = nil
	c.mu.Unlock()

	c.options.recorder.SaveCompleted(ResultOK, time.Since(start))
	logger.Info().Str("cell", cell).Int("length", len(draft)).Msg("Annotation saved")
	c.hooks.fire(events{saved: &saved})
	return nil
}

// AcknowledgeConflict resolves the pending conflict notice.
func (c *client) AcknowledgeConflict(adopt bool) error {
	c.mu.Lock()

	notice, ok := c.sess.Notice()
	if !ok {
		state := c.sess.State().String()
		c.mu.Unlock()
		return errors.NewStateError("acknowledge conflict", state, "no conflict is pending")
	}

	row := notice.Row
	if notice.Source == session.SourceSave {
		col := c.annotationColumn(c.store.Table().Width())
		if patched, ok := c.store.PatchField(notice.RowIndex, col, notice.RemoteValue); ok {
			row = patched
		}
	}

	var err error
	if adopt {
		_, err = c.sess.Adopt()
	} else {
		_, err = c.sess.KeepMine()
	}
	var ev events
	switch {
	case err != nil:
	case notice.Removed:
		c.pinned = 0
		c.store.Forget()
		c.resolve(c.store.Table(), &ev)
	default:
		if c.pinned == notice.RowIndex {
			c.store.Observe(row)
		}
		if adopt {
			ev.view = &row
		}
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info().Int("row", notice.RowIndex).Bool("adopt", adopt).Msg("Conflict acknowledged")
	c.hooks.fire(ev)
	return nil
}

func (c *client) saveFailed(err *errors.SaveError, start time.Time) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.options.recorder.SaveCompleted(ResultError, time.Since(start))
	c.logger.Warn().Err(err).Int("row", err.RowIndex).Msg("Save failed, draft kept")
	return err
}

// editing reports whether the edit on index is still open and savable.
// Callers hold c.mu.
func (c *client) editing(index int) bool {
	return c.sess.State() == session.Editing && c.sess.RowIndex() == index
}

func (c *client) sessState() string {
	return c.sess.State().String()
}

func firstCell(values [][]string) string {
	if len(values) == 0 || len(values[0]) == 0 {
		return ""
	}
	return values[0][0]
}
