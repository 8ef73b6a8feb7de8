package connection

import (
	"context"
	"encoding/json"

	"chat-session/internal/ws"
)

// Session is one established hub connection.
type Session interface {
	Invoke(ctx context.Context, target string, args ...any) (json.RawMessage, error)
	Send(ctx context.Context, target string, args ...any) error
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Transport opens hub sessions. handler receives inbound invocations and
// must be in place before the first record is read.
type Transport interface {
	Dial(ctx context.Context, params ws.HandshakeParams, handler ws.InvocationHandler) (Session, error)
}

// WSTransport dials the hub over websocket.
type WSTransport struct {
	dialer *ws.Dialer
}

func NewWSTransport(dialer *ws.Dialer) *WSTransport {
	return &WSTransport{dialer: dialer}
}

func (t *WSTransport) Dial(ctx context.Context, params ws.HandshakeParams, handler ws.InvocationHandler) (Session, error) {
	conn, err := t.dialer.Dial(ctx, params, handler)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
