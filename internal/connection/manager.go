// Package connection owns the hub session lifecycle: connect, reconnect with
// backoff, rejoin, outbound calls and the inbound event streams.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-session/internal/auth"
	"chat-session/internal/models"
	"chat-session/internal/normalize"
	"chat-session/internal/observability"
	"chat-session/internal/ws"
)

// Hub methods invoked by the manager.
const (
	TargetSendMessage       = "SendMessage"
	TargetJoinConversation  = "JoinConversation"
	TargetLeaveConversation = "LeaveConversation"
	TargetStartTyping       = "StartTyping"
	TargetStopTyping        = "StopTyping"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 2 * time.Second

	rejoinTimeout = 10 * time.Second
)

// Config tunes a Manager. Zero values select the defaults.
type Config struct {
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	// TypingSupported enables the typing hub calls. Without it StartTyping
	// and StopTyping are no-ops.
	TypingSupported bool

	Logger     *slog.Logger
	Emitter    *observability.Emitter
	Normalizer *normalize.Normalizer
	Tracer     trace.Tracer
}

// attempt is one in-flight connect or reconnect run. Concurrent
// StartConnection callers wait on it instead of dialing again.
type attempt struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newAttempt(cancel context.CancelFunc) *attempt {
	return &attempt{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
}

func (a *attempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

func (a *attempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manager is the single owner of a hub connection. Create one per session
// with NewManager and release it with Close.
type Manager struct {
	auth       auth.Provider
	transport  Transport
	cfg        Config
	logger     *slog.Logger
	emitter    *observability.Emitter
	normalizer normalize.Normalizer
	tracer     trace.Tracer

	mu                sync.Mutex
	state             models.ConnectionState
	attemptID         string
	inflight          *attempt
	session           Session
	reconnectAttempts int
	joined            map[int]struct{}
	closed            bool

	states    *Stream[StateChange]
	messages  *Stream[models.Message]
	delivered *Stream[models.Receipt]
	read      *Stream[models.Receipt]
	presence  *Stream[models.PresenceEvent]
	typing    *Stream[models.TypingEvent]
}

func NewManager(provider auth.Provider, transport Transport, cfg Config) *Manager {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "connection")
	normalizer := normalize.Default
	if cfg.Normalizer != nil {
		normalizer = *cfg.Normalizer
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("chat-session/connection")
	}

	return &Manager{
		auth:       provider,
		transport:  transport,
		cfg:        cfg,
		logger:     logger,
		emitter:    cfg.Emitter,
		normalizer: normalizer,
		tracer:     tracer,
		state:      models.Disconnected,
		joined:     make(map[int]struct{}),
		states:     newLatestStream[StateChange]("state", logger),
		messages:   newStream[models.Message]("message", logger),
		delivered:  newStream[models.Receipt]("delivered", logger),
		read:       newStream[models.Receipt]("read", logger),
		presence:   newStream[models.PresenceEvent]("presence", logger),
		typing:     newStream[models.TypingEvent]("typing", logger),
	}
}

// StartConnection connects to the hub. It returns at once when already
// connected and joins the in-flight attempt when one is running.
func (m *Manager) StartConnection(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	switch m.state {
	case models.Connected:
		m.mu.Unlock()
		return nil
	case models.Connecting, models.Reconnecting:
		a := m.inflight
		m.mu.Unlock()
		if a == nil {
			return nil
		}
		return a.wait(ctx)
	}

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a := newAttempt(cancel)
	m.inflight = a
	m.attemptID = a.id
	m.transition(models.Connecting, nil)
	m.mu.Unlock()

	sess, err := m.dial(dialCtx, a.id)

	m.mu.Lock()
	if m.attemptID != a.id {
		m.mu.Unlock()
		if sess != nil {
			sess.Close()
		}
		superseded := &ConnectionError{AttemptID: a.id, Err: ErrAttemptSuperseded}
		a.finish(superseded)
		return superseded
	}
	if err != nil {
		connErr := &ConnectionError{AttemptID: a.id, Err: err}
		m.clearAttemptLocked()
		m.transition(models.Disconnected, connErr)
		m.mu.Unlock()
		a.finish(connErr)
		m.logger.Warn("hub connection failed", "attempt_id", a.id, "error", err)
		return connErr
	}
	m.adoptLocked(sess)
	joined := m.joinedLocked()
	m.mu.Unlock()

	a.finish(nil)
	go m.watch(a.id, sess)
	m.rejoin(ctx, sess, joined)
	m.emit(observability.EventConnected, a.id, 0, nil)
	return nil
}

// StopConnection forces Disconnected from any state, cancels the in-flight
// attempt and the reconnect loop, and closes the transport.
func (m *Manager) StopConnection() {
	m.mu.Lock()
	if m.state == models.Disconnected {
		m.mu.Unlock()
		return
	}
	a, sess := m.inflight, m.session
	id := m.attemptID
	m.clearAttemptLocked()
	m.session = nil
	m.transition(models.Disconnected, nil)
	m.mu.Unlock()

	if a != nil {
		a.cancel()
		a.finish(&ConnectionError{AttemptID: a.id, Err: ErrAttemptSuperseded})
	}
	if sess != nil {
		if err := sess.Close(); err != nil {
			m.logger.Debug("closing hub session", "error", err)
		}
	}
	m.emit(observability.EventDisconnected, id, 0, nil)
}

// Close stops the connection and ends every stream. The manager cannot be
// restarted afterwards.
func (m *Manager) Close() error {
	m.StopConnection()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.states.close()
	m.messages.close()
	m.delivered.close()
	m.read.close()
	m.presence.close()
	m.typing.close()
	return nil
}

func (m *Manager) dial(ctx context.Context, attemptID string) (Session, error) {
	ctx, span := m.tracer.Start(ctx, "hub.handshake",
		trace.WithAttributes(attribute.String("attempt_id", attemptID)))
	defer span.End()

	token, err := m.auth.Token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token unavailable")
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	identity := auth.ResolveIdentity(token, m.auth.Profile())
	span.SetAttributes(
		attribute.String("tenant_code", identity.TenantCode),
		attribute.String("company_code", identity.CompanyCode),
	)

	sess, err := m.transport.Dial(ctx, ws.HandshakeParams{
		Token:       token,
		UserCode:    identity.UserID,
		TenantCode:  identity.TenantCode,
		CompanyCode: identity.CompanyCode,
	}, m.inbound(attemptID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		return nil, err
	}
	return sess, nil
}

// watch waits for an adopted session to end and starts the reconnect loop
// unless the session was stopped or replaced.
func (m *Manager) watch(attemptID string, sess Session) {
	<-sess.Done()
	cause := sess.Err()

	m.mu.Lock()
	if m.attemptID != attemptID || m.session != sess {
		m.mu.Unlock()
		return
	}
	m.session = nil

	var closeErr *ws.CloseError
	if errors.As(cause, &closeErr) && !closeErr.AllowReconnect {
		m.clearAttemptLocked()
		m.transition(models.Disconnected, cause)
		m.mu.Unlock()
		m.logger.Warn("hub closed the session without reconnect", "error", cause)
		m.emit(observability.EventDisconnected, attemptID, 0, cause)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := newAttempt(cancel)
	m.inflight = a
	m.attemptID = a.id
	m.transition(models.Reconnecting, cause)
	m.mu.Unlock()

	m.logger.Warn("hub connection lost", "attempt_id", a.id, "error", cause)
	m.emit(observability.EventReconnecting, a.id, 0, cause)
	go m.reconnect(ctx, a, cause)
}

func (m *Manager) adoptLocked(sess Session) {
	m.session = sess
	m.inflight = nil
	m.reconnectAttempts = 0
	m.transition(models.Connected, nil)
}

func (m *Manager) clearAttemptLocked() {
	m.attemptID = ""
	m.inflight = nil
}

// transition is the only place that changes m.state. Callers hold m.mu.
func (m *Manager) transition(to models.ConnectionState, cause error) bool {
	from := m.state
	if !canTransition(from, to) {
		m.logger.Error("rejected state change", "error", invalidTransitionError{from: from, to: to})
		return false
	}
	m.state = to
	observability.SetConnectionState(string(to))
	m.logger.Debug("connection state changed", "from", from, "to", to)
	m.states.publish(StateChange{From: from, To: to, Err: cause})
	return true
}

func (m *Manager) current(attemptID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return attemptID != "" && m.attemptID == attemptID
}

func (m *Manager) connected() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != models.Connected || m.session == nil {
		return nil, false
	}
	return m.session, true
}

type lifecyclePayload struct {
	AttemptID string `json:"attempt_id,omitempty"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (m *Manager) emit(eventType, attemptID string, attempts int, cause error) {
	if m.emitter == nil {
		return
	}
	payload := lifecyclePayload{AttemptID: attemptID, State: string(m.State()), Attempts: attempts}
	if cause != nil {
		payload.Error = cause.Error()
	}
	m.emitter.Emit(context.Background(), eventType, payload)
}

// State returns the current connection state.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectAttempts returns the number of automatic attempts made since the
// last successful connect.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectAttempts
}

// JoinedConversations returns the conversations rejoined after a reconnect,
// in ascending order.
func (m *Manager) JoinedConversations() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.joined))
}

func (m *Manager) States() *Stream[StateChange]              { return m.states }
func (m *Manager) Messages() *Stream[models.Message]         { return m.messages }
func (m *Manager) Delivered() *Stream[models.Receipt]        { return m.delivered }
func (m *Manager) Read() *Stream[models.Receipt]             { return m.read }
func (m *Manager) Presence() *Stream[models.PresenceEvent]   { return m.presence }
func (m *Manager) TypingEvents() *Stream[models.TypingEvent] { return m.typing }

func (m *Manager) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.ReconnectBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = m.cfg.ReconnectBaseDelay << uint(m.cfg.MaxReconnectAttempts)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
