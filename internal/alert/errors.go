package alert

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("alert engine run already in progress")

// FetchError is a failed read. At run level (UserID 0) it aborts the run.
type FetchError struct {
	Op     string
	UserID int64
	Err    error
}

func (e *FetchError) Error() string {
	if e.UserID != 0 {
		return fmt.Sprintf("fetch %s for user %d: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotificationError means the notification was not delivered and the
// user's alert state was left unchanged.
type NotificationError struct {
	UserID int64
	Err    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify user %d: %v", e.UserID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// PersistenceError is a failed dispatch bookkeeping write. If Sent is true the
// notification already went out and the dispatch stays pending until a
// later run records it.
type PersistenceError struct {
	UserID     int64
	DispatchID string
	Sent       bool
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Sent {
		return fmt.Sprintf("record sent dispatch %s for user %d: %v", e.DispatchID, e.UserID, e.Err)
	}
	return fmt.Sprintf("prepare dispatch for user %d: %v", e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
