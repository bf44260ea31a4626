package store

import "fmt"

type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no value stored for key %s", e.Key)
}

func (e *KeyNotFoundError) Unwrap() error { return nil }
