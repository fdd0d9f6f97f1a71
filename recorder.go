package sheetreview

import "time"

// Outcome labels passed to a Recorder.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultConflict = "conflict"
)

// Recorder receives operational measurements. internal/metrics provides a
// Prometheus implementation.
type Recorder interface {
	PollCompleted(result string, d time.Duration)
	SaveCompleted(result string, d time.Duration)
	ConflictRaised(source string)
}

type nopRecorder struct{}

func (nopRecorder) PollCompleted(string, time.Duration) {}
func (nopRecorder) SaveCompleted(string, time.Duration) {}
func (nopRecorder) ConflictRaised(string)               {}
