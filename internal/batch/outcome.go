package batch

import (
	"fmt"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
)

// Status is the terminal state of a run
type Status string

const (
	Completed      Status = "completed"
	PartialFailure Status = "partial_failure"
	Canceled       Status = "canceled"
)

// ItemError is a failed generation call within a run
type ItemError struct {
	Index   int    `json:"index"`
	Caption string `json:"caption"`
	Err     error  `json:"-"`
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("failed to create stamp %q: %v", e.Caption, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal result of a run
type Outcome struct {
	Status   Status                  `json:"status"`
	Progress models.Progress         `json:"progress"`
	Stamps   []models.GeneratedStamp `json:"stamps"` // newest first
	Failures []*ItemError            `json:"failures,omitempty"`

	cancelErr error
}

// FirstFailure returns the earliest failed item, or nil
func (o *Outcome) FirstFailure() *ItemError {
	if len(o.Failures) == 0 {
		return nil
	}
	return o.Failures[0]
}

// Err is nil for a completed run
func (o *Outcome) Err() error {
	switch o.Status {
	case PartialFailure:
		return o.FirstFailure()
	case Canceled:
		return fmt.Errorf("batch canceled after %d of %d stamps: %w", o.Progress.Completed, o.Progress.Total, o.cancelErr)
	default:
		return nil
	}
}

func (o *Outcome) cancel(err error) {
	o.Status = Canceled
	o.cancelErr = err
}
