package client

import "fmt"

// ValidationError is a local, pre-network failure: the request never left
// the process and no state changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TransportError is a network failure or a non-2xx response. Callers must
// not apply optimistic state when they see one.
type TransportError struct {
	Op      string
	Status  int // 0 when the request never completed
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
