// ABOUTME: Typed boundary errors for the backend client
// ABOUTME: InitError for conversation creation, TransportError for stream opening

package api

import "fmt"

// InitError reports that a conversation could not be created. The
// session stays unusable until a retry succeeds.
type InitError struct {
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *InitError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("conversation creation failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("conversation creation failed: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// TransportError reports that a streaming exchange could not be opened:
// a non-success initial response or an unreadable body. Per-line decode
// problems are never a TransportError; those are skipped by the decoder.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("stream failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
