package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the hub.
	writeWait = 10 * time.Second

	defaultHandshakeTimeout = 15 * time.Second
	defaultPingInterval     = 15 * time.Second
	sendBuffer              = 256
)

// HandshakeParams are the per-attempt connection parameters.
type HandshakeParams struct {
	Token       string
	UserCode    string
	TenantCode  string
	CompanyCode string
}

// InvocationHandler receives inbound hub invocations in transport order.
type InvocationHandler func(target string, args []json.RawMessage)

// Dialer opens hub connections over gorilla/websocket.
type Dialer struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	Logger           *slog.Logger
	WS               *websocket.Dialer
}

// Conn is an established hub connection.
type Conn struct {
	ws      *websocket.Conn
	info    ConnInfo
	handler InvocationHandler
	logger  *slog.Logger

	send     chan []byte
	done     chan struct{}
	once     sync.Once
	nextID   atomic.Uint64
	leftover [][]byte

	mu      sync.Mutex
	err     error
	pending map[string]chan Frame

	pingInterval time.Duration
}

// Dial connects to the hub and completes the protocol handshake. handler is
// installed before any inbound record is read.
func (d *Dialer) Dial(ctx context.Context, params HandshakeParams, handler InvocationHandler) (*Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := hubURL(d.URL, params)
	if err != nil {
		return nil, &HandshakeError{Err: fmt.Errorf("invalid hub url: %w", err)}
	}

	header := http.Header{}
	if params.Token != "" {
		header.Set("Authorization", "Bearer "+params.Token)
	}

	dialer := d.WS
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	wsConn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		hsErr := &HandshakeError{Err: err}
		if resp != nil {
			hsErr.StatusCode = resp.StatusCode
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				hsErr.Err = fmt.Errorf("%w: %v", ErrHandshakeRejected, err)
			}
		}
		return nil, hsErr
	}

	leftover, err := handshake(ctx, wsConn)
	if err != nil {
		wsConn.Close()
		return nil, err
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pingInterval := d.PingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}

	c := &Conn{
		ws:      wsConn,
		handler: handler,
		logger:  logger,
		info: ConnInfo{
			ConnID:      newConnID(),
			URL:         d.URL,
			UserCode:    params.UserCode,
			TenantCode:  params.TenantCode,
			CompanyCode: params.CompanyCode,
			ConnectedAt: time.Now(),
		},
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		pending:      make(map[string]chan Frame),
		leftover:     leftover,
		pingInterval: pingInterval,
	}
	c.logger.Info("hub connected",
		"conn_id", c.info.ConnID,
		"user_code", c.info.UserCode,
		"tenant_code", c.info.TenantCode,
		"company_code", c.info.CompanyCode,
	)
	go c.writePump()
	go c.readPump()
	return c, nil
}

func handshake(ctx context.Context, wsConn *websocket.Conn) ([][]byte, error) {
	deadline, _ := ctx.Deadline()
	wsConn.SetWriteDeadline(deadline)
	wsConn.SetReadDeadline(deadline)

	req, err := EncodeRecord(handshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		return nil, &HandshakeError{Err: err}
	}
	if err := wsConn.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, &HandshakeError{Err: fmt.Errorf("send handshake: %w", err)}
	}

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			return nil, &HandshakeError{Err: fmt.Errorf("read handshake: %w", err)}
		}
		records := SplitRecords(data)
		if len(records) == 0 {
			continue
		}
		var resp handshakeResponse
		if err := json.Unmarshal(records[0], &resp); err != nil {
			return nil, &HandshakeError{Err: fmt.Errorf("decode handshake: %w", err)}
		}
		if resp.Type == CloseFrame || resp.Error != "" {
			return nil, &HandshakeError{Reason: resp.Error, Err: ErrHandshakeRejected}
		}
		wsConn.SetReadDeadline(time.Time{})
		wsConn.SetWriteDeadline(time.Time{})
		return records[1:], nil
	}
}

// Info returns the connection metadata.
func (c *Conn) Info() ConnInfo { return c.info }

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the reason the connection shut down, or nil while open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Invoke calls a hub method and waits for its completion.
func (c *Conn) Invoke(ctx context.Context, target string, args ...any) (json.RawMessage, error) {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	frame, err := Invocation(id, target, args...)
	if err != nil {
		return nil, err
	}
	record, err := EncodeRecord(frame)
	if err != nil {
		return nil, err
	}

	reply := make(chan Frame, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer c.forget(id)

	if err := c.enqueue(ctx, record); err != nil {
		return nil, err
	}

	select {
	case f := <-reply:
		if f.Error != "" {
			return nil, &InvocationError{Target: target, Message: f.Error}
		}
		return f.Result, nil
	case <-c.done:
		return nil, fmt.Errorf("%w: %v", ErrClosed, c.Err())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send invokes a hub method without waiting for a completion.
func (c *Conn) Send(ctx context.Context, target string, args ...any) error {
	frame, err := Invocation("", target, args...)
	if err != nil {
		return err
	}
	record, err := EncodeRecord(frame)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, record)
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.shutdown(ErrClosed)
	return nil
}

func (c *Conn) enqueue(ctx context.Context, record []byte) error {
	select {
	case c.send <- record:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %v", ErrClosed, c.Err())
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) shutdown(reason error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = reason
		c.mu.Unlock()
		close(c.done)
		c.ws.Close()
	})
}

// readPump dispatches inbound records until the connection fails.
func (c *Conn) readPump() {
	for _, record := range c.leftover {
		if !c.dispatch(record) {
			return
		}
	}
	c.leftover = nil

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("hub read failed", "conn_id", c.info.ConnID, "error", err)
			}
			c.shutdown(err)
			return
		}
		for _, record := range SplitRecords(data) {
			if !c.dispatch(record) {
				return
			}
		}
	}
}

// dispatch handles one record and reports whether reading should continue.
func (c *Conn) dispatch(record []byte) bool {
	var f Frame
	if err := json.Unmarshal(record, &f); err != nil {
		c.logger.Warn("dropping malformed hub record", "conn_id", c.info.ConnID, "error", err)
		return true
	}
	switch f.Type {
	case InvocationFrame:
		if c.handler != nil {
			c.handler(f.Target, f.Arguments)
		}
	case CompletionFrame:
		c.mu.Lock()
		reply, ok := c.pending[f.InvocationID]
		c.mu.Unlock()
		if ok {
			select {
			case reply <- f:
			default:
			}
		}
	case PingFrame:
	case CloseFrame:
		c.shutdown(&CloseError{Message: f.Error, AllowReconnect: f.AllowReconnect})
		return false
	default:
		c.logger.Debug("ignoring hub record", "conn_id", c.info.ConnID, "type", f.Type)
	}
	return true
}

// writePump is the only writer of data frames.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	ping, _ := EncodeRecord(Frame{Type: PingFrame})
	for {
		select {
		case record := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, record); err != nil {
				c.shutdown(fmt.Errorf("write hub frame: %w", err))
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				c.shutdown(fmt.Errorf("write hub ping: %w", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// IsRejected reports whether err is a handshake refused by the hub.
func IsRejected(err error) bool {
	return errors.Is(err, ErrHandshakeRejected)
}
