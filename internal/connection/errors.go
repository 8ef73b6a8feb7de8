package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by outbound calls while the hub is not connected.
	ErrNotConnected = errors.New("connection: not connected")
	// ErrAttemptSuperseded is returned to callers of an attempt that was
	// cancelled by StopConnection or replaced by a newer attempt.
	ErrAttemptSuperseded = errors.New("connection: attempt superseded")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("connection: manager closed")
)

// ConnectionError wraps a failed explicit connection attempt.
type ConnectionError struct {
	AttemptID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection attempt %s failed: %v", e.AttemptID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReconnectExhaustedError is published on the state stream once automatic
// reconnects give up. A manual StartConnection is required afterwards.
type ReconnectExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ReconnectExhaustedError) Error() string {
	return fmt.Sprintf("reconnect gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ReconnectExhaustedError) Unwrap() error { return e.Last }
