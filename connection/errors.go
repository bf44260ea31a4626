package connection

import "fmt"

// The ManualDisconnectError marks a closure initiated locally by Disconnect().
// The supervisor uses it to suppress the reconnect loop.
type ManualDisconnectError struct{}

func (e *ManualDisconnectError) Error() string { return "connection closed by local request" }

func (e *ManualDisconnectError) Unwrap() error { return nil }

// The ConnectionClosedError rejects pending requests whose connection died
// before a response arrived
type ConnectionClosedError struct {
	Reason string
}

func (e *ConnectionClosedError) Error() string {
	return fmt.Sprintf("connection closed before a response arrived: %s", e.Reason)
}

func (e *ConnectionClosedError) Unwrap() error { return nil }

// The MaxAttemptsError is returned when the reconnect loop gives up after
// exhausting its attempt ceiling
type MaxAttemptsError struct {
	Attempts int
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("giving up after %d failed connection attempts", e.Attempts)
}

func (e *MaxAttemptsError) Unwrap() error { return nil }

// The IdentityError is returned when the instance identity cannot be resolved,
// which makes connecting pointless because the gateway would reject us
type IdentityError struct {
	InnerError error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("failed to resolve instance identity: %s", e.InnerError)
}

func (e *IdentityError) Unwrap() error { return e.InnerError }
