package heartbeat

import (
	"fmt"
	"time"
)

// PongTimeoutError means the pong deadline passed with no inbound traffic of
// any kind; the remote end is presumed unreachable.
type PongTimeoutError struct {
	Timeout time.Duration
}

func (e *PongTimeoutError) Error() string {
	return fmt.Sprintf("no inbound traffic within %s of a heartbeat ping", e.Timeout)
}

func (e *PongTimeoutError) Unwrap() error { return nil }
