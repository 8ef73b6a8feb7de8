package ws

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for calls on a connection that has shut down.
	ErrClosed = errors.New("ws: connection closed")
	// ErrHandshakeRejected marks a handshake refused by the hub.
	ErrHandshakeRejected = errors.New("ws: handshake rejected")
)

// HandshakeError describes a failed websocket upgrade or protocol handshake.
type HandshakeError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *HandshakeError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("ws handshake failed: status %d: %v", e.StatusCode, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("ws handshake failed: %s", e.Reason)
	default:
		return fmt.Sprintf("ws handshake failed: %v", e.Err)
	}
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// InvocationError is a completion that carried an error from the hub.
type InvocationError struct {
	Target  string
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("hub invocation %s failed: %s", e.Target, e.Message)
}

// CloseError is raised when the hub sends a close record.
type CloseError struct {
	Message        string
	AllowReconnect bool
}

func (e *CloseError) Error() string {
	if e.Message == "" {
		return "hub closed the connection"
	}
	return "hub closed the connection: " + e.Message
}
