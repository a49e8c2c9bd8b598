package services

import "fmt"

// ValidationError indicates a request that the workflow policy rejects,
// e.g. a status transition that is not permitted from the current state.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a missing order, image or stored object.
// Callers may treat it as a normal empty state rather than a failure.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// TransportError indicates a network or HTTP-level failure while talking
// to the object store.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an upload attempt that exceeded its time bound.
// It is reported distinctly from TransportError so callers can tell a slow
// link from a broken one.
type TimeoutError struct {
	Message string
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// CompressionError indicates an image decode or re-encode failure.
// Callers must not substitute the original file for the failed output,
// because the upload destination enforces a byte-size ceiling.
type CompressionError struct {
	Filename string
	Err      error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("failed to compress %s: %v", e.Filename, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}
