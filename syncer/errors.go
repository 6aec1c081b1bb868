package syncer

import "fmt"

// TransportError means the request never got a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sync transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError means the collector answered with something other than 200.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sync rejected: status %d", e.StatusCode)
	}
	return fmt.Sprintf("sync rejected: status %d: %s", e.StatusCode, e.Body)
}

// SerializationError means the batch could not be encoded. Retrying
// reproduces it, so it is logged loudly.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("sync serialization: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
