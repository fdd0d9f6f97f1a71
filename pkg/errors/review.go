package errors

import "fmt"

// ValidationError rejects a caller-supplied value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError returns a ValidationError for field.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// WrapValidation reports err as invalid input for field. Nil stays nil.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// StateError rejects a command in the current edit state, e.g. Save
// while a conflict is pending.
type StateError struct {
	Operation string
	State     string
	Message   string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("%s not allowed while %s", e.Operation, e.State)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// NewStateError returns a StateError.
func NewStateError(operation, state, message string) *StateError {
	return &StateError{Operation: operation, State: state, Message: message}
}

// ConflictError means the remote annotation of the edited row no longer
// equals the baseline captured when editing began. Notice holds the
// session.Notice; it is typed any to keep this package dependency free.
type ConflictError struct {
	Source   string // poll, save or expect
	RowIndex int
	Remote   string
	Baseline string
	Notice   any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("row %d annotation changed remotely (%s): have %q, edit began from %q",
		e.RowIndex, e.Source, e.Remote, e.Baseline)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflictError returns a ConflictError.
func NewConflictError(source string, rowIndex int, remote, baseline string, notice any) *ConflictError {
	return &ConflictError{Source: source, RowIndex: rowIndex, Remote: remote, Baseline: baseline, Notice: notice}
}

// FetchError wraps a failed read of the review range. The previous
// snapshot stays in place.
type FetchError struct {
	TableID string
	Range   string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.TableID, e.Range, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrTransient }

// NewFetchError returns a FetchError.
func NewFetchError(tableID, rangeSpec string, err error) *FetchError {
	return &FetchError{TableID: tableID, Range: rangeSpec, Err: err}
}

// SaveError wraps a gateway failure in the read or write step of a save.
// The draft survives and the save may be retried.
type SaveError struct {
	Step     string // read or write
	RowIndex int
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save row %d (%s): %v", e.RowIndex, e.Step, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func (e *SaveError) Is(target error) bool { return target == ErrTransient }

// NewSaveError returns a SaveError.
func NewSaveError(step string, rowIndex int, err error) *SaveError {
	return &SaveError{Step: step, RowIndex: rowIndex, Err: err}
}

// NotFoundError names a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError returns a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
