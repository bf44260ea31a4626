package pending

import (
	"fmt"
	"time"
)

// DuplicateIdError means a request id was registered while already pending.
type DuplicateIdError struct {
	Id string
}

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("request id %s is already pending", e.Id)
}

func (e *DuplicateIdError) Unwrap() error { return nil }

// TimeoutError means no correlated response arrived within the request's
// timeout.
type TimeoutError struct {
	Id      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.Id, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return nil }
