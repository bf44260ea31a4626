package wire

import "fmt"

// ParseError means an inbound frame could not be decoded. The supervisor logs
// and discards these; they never close the connection.
type ParseError struct {
	Raw    []byte
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse wire message %q: %s", truncate(e.Raw, 128), e.Reason)
}

func (e *ParseError) Unwrap() error { return nil }

func truncate(raw []byte, max int) string {
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
