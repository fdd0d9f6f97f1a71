// Package session implements the per-viewer edit state machine:
//
//	Viewing --BeginEdit--> Editing --Save ok / Cancel--> Viewing
//	Editing --remote change or save mismatch--> ConflictPending
//	ConflictPending --adopt--> Viewing
//	ConflictPending --keep mine--> Editing (baseline rebased)
//
// A Session is not safe for concurrent use; the owning client serializes
// access to it.
package session

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/table"
)

// State is the edit state of a viewer.
type State int

// Edit states.
const (
	Viewing State = iota
	Editing
	ConflictPending
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case ConflictPending:
		return "conflict"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "viewing":
		*s = Viewing
	case "editing":
		*s = Editing
	case "conflict":
		*s = ConflictPending
	default:
		return errors.NewValidationError("state", string(b), "unknown edit state")
	}
	return nil
}

// Source tells which path detected a conflict.
type Source string

// Conflict sources.
const (
	SourcePoll Source = "poll"
	SourceSave Source = "save"
)

// Notice describes a remote change that collided with a local draft. Row is
// the latest remote version of the row, RemoteValue its annotation. Removed
// is set when the row no longer exists remotely; Row then carries only the
// index and RemoteValue is empty.
type Notice struct {
	Source      Source    `json:"source" yaml:"source"`
	RowIndex    int       `json:"row_index" yaml:"row_index"`
	Row         table.Row `json:"row" yaml:"row"`
	RemoteValue string    `json:"remote_value" yaml:"remote_value"`
	Baseline    string    `json:"baseline" yaml:"baseline"`
	Draft       string    `json:"draft" yaml:"draft"`
	Removed     bool      `json:"removed,omitempty" yaml:"removed,omitempty"`
	DetectedAt  utc.Time  `json:"detected_at" yaml:"detected_at"`
}

// Session is the edit state of one viewer.
type Session struct {
	state    State
	rowIndex int
	baseline string
	draft    string
	notice   *Notice
}

// Snapshot is a read-only copy of a Session.
type Snapshot struct {
	State    State   `json:"state" yaml:"state"`
	Active   bool    `json:"active" yaml:"active"`
	RowIndex int     `json:"row_index,omitempty" yaml:"row_index,omitempty"`
	Baseline string  `json:"baseline" yaml:"baseline"`
	Draft    string  `json:"draft" yaml:"draft"`
	Notice   *Notice `json:"notice,omitempty" yaml:"notice,omitempty"`
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Active reports whether an edit is open (Editing or ConflictPending).
func (s *Session) Active() bool { return s.state != Viewing }

// RowIndex is the row being edited, or 0 while viewing.
func (s *Session) RowIndex() int { return s.rowIndex }

// Baseline is the annotation value the draft was started from.
func (s *Session) Baseline() string { return s.baseline }

// Draft is the local annotation text.
func (s *Session) Draft() string { return s.draft }

// Notice returns the pending conflict notice, if any.
func (s *Session) Notice() (Notice, bool) {
	if s.notice == nil {
		return Notice{}, false
	}
	return *s.notice, true
}

// Snapshot copies the session for readers outside the owner's lock.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Active:   s.Active(),
		RowIndex: s.rowIndex,
		Baseline: s.baseline,
		Draft:    s.draft,
	}
	if s.notice != nil {
		n := *s.notice
		n.Row = n.Row.Clone()
		snap.Notice = &n
	}
	return snap
}

// Show sets the draft to the annotation of the row in view. Only valid
// while viewing; an open edit is never overwritten.
func (s *Session) Show(annotation string) {
	if s.state == Viewing {
		s.draft = annotation
	}
}

// Begin opens an edit on rowIndex whose current annotation is current.
func (s *Session) Begin(rowIndex int, current string) error {
	if s.state != Viewing {
		return errors.NewStateError("begin edit", s.state.String(), "an edit is already open")
	}
	s.state = Editing
	s.rowIndex = rowIndex
	s.baseline = current
	s.draft = current
	return nil
}

// SetDraft replaces the draft text. Local only.
func (s *Session) SetDraft(text string) error {
	if s.state == Viewing {
		return errors.NewStateError("update draft", s.state.String(), "begin an edit first")
	}
	s.draft = text
	return nil
}

// Cancel discards the draft and returns to viewing with the draft reset to
// current, the annotation in the snapshot.
func (s *Session) Cancel(current string) error {
	if s.state != Editing {
		return errors.NewStateError("cancel", s.state.String(), "")
	}
	s.close(current)
	return nil
}

// CanSave reports nil when a save may start.
func (s *Session) CanSave() error {
	if s.state != Editing {
		msg := ""
		if s.state == ConflictPending {
			msg = "acknowledge the conflict first"
		}
		return errors.NewStateError("save", s.state.String(), msg)
	}
	return nil
}

// Saved closes the edit after a successful write of value.
func (s *Session) Saved(value string) {
	s.close(value)
}

// Conflict raises or refreshes the pending notice. The draft is untouched.
// It returns the stored notice.
func (s *Session) Conflict(source Source, row table.Row, remote string) (Notice, error) {
	if s.state == Viewing {
		return Notice{}, errors.NewStateError("raise conflict", s.state.String(), "no edit is open")
	}
	s.state = ConflictPending
	s.notice = &Notice{
		Source:      source,
		RowIndex:    s.rowIndex,
		Row:         row.Clone(),
		RemoteValue: remote,
		Baseline:    s.baseline,
		Draft:       s.draft,
		DetectedAt:  utc.Now(),
	}
	return *s.notice, nil
}

// Vanished raises or refreshes the pending notice for a row that was
// deleted remotely. The draft is untouched.
func (s *Session) Vanished(source Source) (Notice, error) {
	n, err := s.Conflict(source, table.Row{Index: s.rowIndex}, "")
	if err != nil {
		return Notice{}, err
	}
	s.notice.Removed = true
	n.Removed = true
	return n, nil
}

// Adopt accepts the remote version: the edit is closed and the draft
// replaced by the remote annotation. It returns the acknowledged notice.
func (s *Session) Adopt() (Notice, error) {
	n, err := s.pending("adopt remote")
	if err != nil {
		return Notice{}, err
	}
	s.close(n.RemoteValue)
	return n, nil
}

// KeepMine dismisses the notice and keeps editing. The baseline moves to
// the remote annotation so the next save compares against what the
// reviewer has now seen.
func (s *Session) KeepMine() (Notice, error) {
	n, err := s.pending("keep draft")
	if err != nil {
		return Notice{}, err
	}
	if n.Removed {
		return Notice{}, errors.NewStateError("keep draft", s.state.String(), "the row no longer exists")
	}
	s.state = Editing
	s.baseline = n.RemoteValue
	s.notice = nil
	return n, nil
}

// Rebase moves the baseline of the open edit to value and keeps the draft.
func (s *Session) Rebase(value string) error {
	if s.state != Editing {
		return errors.NewStateError("rebase", s.state.String(), "")
	}
	s.baseline = value
	return nil
}

// Reset force-closes any edit and shows annotation, used when the row in
// view goes away.
func (s *Session) Reset(annotation string) {
	s.close(annotation)
}

func (s *Session) pending(op string) (Notice, error) {
	if s.state != ConflictPending || s.notice == nil {
		return Notice{}, errors.NewStateError(op, s.state.String(), "no conflict is pending")
	}
	return *s.notice, nil
}

func (s *Session) close(annotation string) {
	s.state = Viewing
	s.rowIndex = 0
	s.baseline = ""
	s.draft = annotation
	s.notice = nil
}
