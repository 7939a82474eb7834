package board

import (
	"errors"
	"fmt"
)

// StaleReferenceError reports a lead or board id that is not present in authoritative state.
// It is expected while lists refresh underneath a drag gesture and is never shown to the user.
type StaleReferenceError struct {
	Kind string
	ID   string
	// BoardID is set when a lead was looked up in a specific board (lead not found in origin).
	BoardID string
}

func (e *StaleReferenceError) Error() string {
	if e.BoardID != "" {
		return fmt.Sprintf("stale reference: %s %s not found in board %s", e.Kind, e.ID, e.BoardID)
	}
	return fmt.Sprintf("stale reference: %s %s not found", e.Kind, e.ID)
}

// MoveRejectedError wraps a failed external move call.
type MoveRejectedError struct {
	LeadID string
	Reason string
	Err    error
}

func (e *MoveRejectedError) Error() string {
	return "move rejected: " + e.Reason
}

func (e *MoveRejectedError) Unwrap() error { return e.Err }

// ErrConcurrentMove is returned when a commit is attempted for a lead whose move call is still outstanding.
var ErrConcurrentMove = errors.New("move already in progress for lead")

func IsStale(err error) bool {
	var se *StaleReferenceError
	return errors.As(err, &se)
}
