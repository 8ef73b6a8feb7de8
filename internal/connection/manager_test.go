package connection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-session/internal/auth"
	"chat-session/internal/models"
	"chat-session/internal/ws"
)

var errDial = errors.New("dial refused")

type call struct {
	target string
	args   []any
	send   bool
}

type fakeSession struct {
	mu    sync.Mutex
	calls []call
	ack   json.RawMessage
	done  chan struct{}
	once  sync.Once
	err   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan struct{})}
}

func (s *fakeSession) Invoke(_ context.Context, target string, args ...any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{target: target, args: args})
	return s.ack, nil
}

func (s *fakeSession) Send(_ context.Context, target string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{target: target, args: args, send: true})
	return nil
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.drop(ws.ErrClosed)
	return nil
}

func (s *fakeSession) drop(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSession) targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.target)
	}
	return out
}

func (s *fakeSession) joinedIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for _, c := range s.calls {
		if c.target == TargetJoinConversation {
			ids = append(ids, c.args[0].(int))
		}
	}
	return ids
}

type fakeTransport struct {
	mu       sync.Mutex
	dials    int
	failing  bool
	gate     chan struct{}
	sessions []*fakeSession
	handlers []ws.InvocationHandler
	params   []ws.HandshakeParams
}

func (f *fakeTransport) Dial(ctx context.Context, params ws.HandshakeParams, handler ws.InvocationHandler) (Session, error) {
	f.mu.Lock()
	f.dials++
	f.params = append(f.params, params)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errDial
	}
	s := newFakeSession()
	f.sessions = append(f.sessions, s)
	f.handlers = append(f.handlers, handler)
	return s, nil
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeTransport) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeTransport) session(i int) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.sessions) {
		return nil
	}
	return f.sessions[i]
}

func (f *fakeTransport) handler(i int) ws.InvocationHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[i]
}

func newTestManager(t *testing.T, transport *fakeTransport, cfg Config) *Manager {
	t.Helper()
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = time.Millisecond
	}
	m := NewManager(auth.StaticProvider{
		BearerToken: "token",
		Cached:      auth.Profile{UserID: "42", TenantCode: "acme", CompanyCode: "7"},
	}, transport, cfg)
	t.Cleanup(func() { m.Close() })
	return m
}

func waitChange(t *testing.T, ch <-chan StateChange, match func(StateChange) bool) StateChange {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			require.True(t, ok, "state stream closed")
			if match(c) {
				return c
			}
		case <-timeout:
			t.Fatal("timed out waiting for state change")
		}
	}
}

func TestStartConnectionUsesIdentity(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})

	require.NoError(t, m.StartConnection(context.Background()))
	assert.Equal(t, models.Connected, m.State())

	transport.mu.Lock()
	params := transport.params[0]
	transport.mu.Unlock()
	assert.Equal(t, ws.HandshakeParams{Token: "token", UserCode: "42", TenantCode: "acme", CompanyCode: "7"}, params)

	require.NoError(t, m.StartConnection(context.Background()))
	assert.Equal(t, 1, transport.dialCount())
}

func TestConcurrentStartsShareOneHandshake(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	m := newTestManager(t, transport, Config{})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- m.StartConnection(context.Background()) }()
	}

	require.Eventually(t, func() bool { return m.State() == models.Connecting }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(transport.gate)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, transport.dialCount())
	assert.Equal(t, models.Connected, m.State())
}

func TestHandshakeFailureReturnsConnectionError(t *testing.T) {
	transport := &fakeTransport{failing: true}
	m := newTestManager(t, transport, Config{})
	states, cancel := m.States().Subscribe()
	defer cancel()

	err := m.StartConnection(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, errDial)
	assert.Equal(t, models.Disconnected, m.State())
	assert.Equal(t, 0, m.ReconnectAttempts())

	change := waitChange(t, states, func(c StateChange) bool { return c.To == models.Disconnected })
	assert.Equal(t, models.Connecting, change.From)
	assert.ErrorAs(t, change.Err, &connErr)

	transport.setFailing(false)
	require.NoError(t, m.StartConnection(context.Background()))
	assert.Equal(t, 2, transport.dialCount())
}

func TestReconnectExhaustion(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{MaxReconnectAttempts: 5})
	require.NoError(t, m.StartConnection(context.Background()))
	states, cancel := m.States().Subscribe()
	defer cancel()

	transport.setFailing(true)
	transport.session(0).drop(errors.New("network reset"))

	change := waitChange(t, states, func(c StateChange) bool { return c.To == models.Disconnected })
	var exhausted *ReconnectExhaustedError
	require.ErrorAs(t, change.Err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, change.Err, errDial)
	assert.Equal(t, models.Reconnecting, change.From)

	assert.Equal(t, 6, transport.dialCount())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 6, transport.dialCount(), "no automatic attempt after exhaustion")
	assert.Equal(t, models.Disconnected, m.State())

	transport.setFailing(false)
	require.NoError(t, m.StartConnection(context.Background()))
	assert.Equal(t, 0, m.ReconnectAttempts())
}

func TestRejoinOnReconnect(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))

	ctx := context.Background()
	require.NoError(t, m.JoinConversation(ctx, 9))
	require.NoError(t, m.JoinConversation(ctx, 3))
	require.NoError(t, m.JoinConversation(ctx, 5))
	require.NoError(t, m.LeaveConversation(ctx, 5))
	assert.Equal(t, []int{3, 9}, m.JoinedConversations())

	transport.session(0).drop(errors.New("network reset"))

	require.Eventually(t, func() bool {
		s := transport.session(1)
		return s != nil && len(s.joinedIDs()) == 2
	}, 2*time.Second, time.Millisecond)
	assert.ElementsMatch(t, []int{3, 9}, transport.session(1).joinedIDs())
	assert.Equal(t, models.Connected, m.State())
	assert.Equal(t, 0, m.ReconnectAttempts())
}

func TestManualRestartAfterExhaustionRejoins(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{MaxReconnectAttempts: 1})
	require.NoError(t, m.StartConnection(context.Background()))
	require.NoError(t, m.JoinConversation(context.Background(), 9))
	states, cancel := m.States().Subscribe()
	defer cancel()

	transport.setFailing(true)
	transport.session(0).drop(errors.New("network reset"))
	change := waitChange(t, states, func(c StateChange) bool { return c.To == models.Disconnected })
	var exhausted *ReconnectExhaustedError
	require.ErrorAs(t, change.Err, &exhausted)

	transport.setFailing(false)
	require.NoError(t, m.StartConnection(context.Background()))
	restarted := transport.session(1)
	require.NotNil(t, restarted)
	assert.Equal(t, []int{9}, restarted.joinedIDs())
	assert.Equal(t, []int{9}, m.JoinedConversations())
}

func TestOutboundCallsWhileDisconnected(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{TypingSupported: true})
	ctx := context.Background()

	_, err := m.SendMessage(ctx, 1, "hola", models.TextMessage)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, m.JoinConversation(ctx, 4))
	assert.NoError(t, m.LeaveConversation(ctx, 4))
	assert.NoError(t, m.StartTyping(ctx, 4))
	assert.Empty(t, m.JoinedConversations())
	assert.Equal(t, 0, transport.dialCount())
}

func TestJoinSkipsInvalidIDs(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))

	require.NoError(t, m.JoinConversation(context.Background(), 0))
	require.NoError(t, m.JoinConversation(context.Background(), -3))
	require.NoError(t, m.LeaveConversation(context.Background(), 0))
	assert.Empty(t, transport.session(0).targets())
}

func TestSendMessageNormalizesAck(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))
	sess := transport.session(0)
	sess.ack = json.RawMessage(`{"MensajeId":77,"ConversacionId":12,"RemitenteId":42,"Contenido":"hola","TipoMensaje":"texto","FechaEnvio":"2026-02-28T10:15:00Z"}`)

	msg, err := m.SendMessage(context.Background(), 12, "hola", models.TextMessage)
	require.NoError(t, err)
	assert.Equal(t, 77, msg.ID)
	assert.Equal(t, 12, msg.ConversationID)
	assert.Equal(t, 42, msg.SenderID)
	assert.Equal(t, models.TextMessage, msg.Type)
	assert.Equal(t, []string{TargetSendMessage}, sess.targets())
}

func TestSendMessageWithEmptyAck(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))

	msg, err := m.SendMessage(context.Background(), 12, "pic.png", models.ImageMessage)
	require.NoError(t, err)
	assert.Equal(t, 12, msg.ConversationID)
	assert.Equal(t, "pic.png", msg.Content)
	assert.Equal(t, models.ImageMessage, msg.Type)
}

func TestStopWhileDisconnectedIsNoop(t *testing.T) {
	m := newTestManager(t, &fakeTransport{}, Config{})
	states, cancel := m.States().Subscribe()
	defer cancel()

	m.StopConnection()
	assert.Equal(t, models.Disconnected, m.State())
	assert.Len(t, states, 0)
}

func TestStopWhileConnecting(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	m := newTestManager(t, transport, Config{})

	errs := make(chan error, 1)
	go func() { errs <- m.StartConnection(context.Background()) }()
	require.Eventually(t, func() bool { return m.State() == models.Connecting }, time.Second, time.Millisecond)

	m.StopConnection()
	err := <-errs
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, ErrAttemptSuperseded)
	assert.Equal(t, models.Disconnected, m.State())
}

func TestStopWhileConnected(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))

	m.StopConnection()
	assert.Equal(t, models.Disconnected, m.State())
	select {
	case <-transport.session(0).Done():
	default:
		t.Fatal("session not closed")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, transport.dialCount(), "explicit stop never reconnects")
}

func TestStopWhileReconnecting(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{ReconnectBaseDelay: time.Hour})
	require.NoError(t, m.StartConnection(context.Background()))

	transport.session(0).drop(errors.New("network reset"))
	require.Eventually(t, func() bool { return m.State() == models.Reconnecting }, time.Second, time.Millisecond)

	m.StopConnection()
	assert.Equal(t, models.Disconnected, m.State())
	assert.Equal(t, 1, transport.dialCount())

	require.NoError(t, m.StartConnection(context.Background()))
	assert.Equal(t, models.Connected, m.State())
}

func TestCloseRecordWithoutReconnect(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))
	states, cancel := m.States().Subscribe()
	defer cancel()

	transport.session(0).drop(&ws.CloseError{Message: "kicked"})

	change := waitChange(t, states, func(c StateChange) bool { return c.To == models.Disconnected })
	var closeErr *ws.CloseError
	assert.ErrorAs(t, change.Err, &closeErr)
	assert.Equal(t, 1, transport.dialCount())
}

func TestInboundEventsAreNormalizedAndMulticast(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))

	first, cancelFirst := m.Messages().Subscribe()
	defer cancelFirst()
	second, cancelSecond := m.Messages().Subscribe()
	defer cancelSecond()
	presence, cancelPresence := m.Presence().Subscribe()
	defer cancelPresence()
	reads, cancelReads := m.Read().Subscribe()
	defer cancelReads()

	h := transport.handler(0)
	h(EventReceiveMessage, []json.RawMessage{json.RawMessage(`{"mensajeid":5,"conversacionid":12,"contenido":"hola"}`)})
	h(EventUserDisconnected, []json.RawMessage{json.RawMessage(`42`)})
	h(EventMessageRead, []json.RawMessage{json.RawMessage(`{"messageId":5,"conversationId":12,"userId":42}`)})

	for _, ch := range []<-chan models.Message{first, second} {
		msg := <-ch
		assert.Equal(t, 5, msg.ID)
		assert.Equal(t, 12, msg.ConversationID)
		assert.Equal(t, "hola", msg.Content)
	}
	assert.Equal(t, models.PresenceEvent{UserID: 42, IsOnline: false}, <-presence)
	receipt := <-reads
	assert.Equal(t, 5, receipt.MessageID)
	assert.Equal(t, 42, receipt.UserID)
}

func TestStaleAttemptEventsAreDropped(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(t, transport, Config{})
	require.NoError(t, m.StartConnection(context.Background()))
	m.StopConnection()
	require.NoError(t, m.StartConnection(context.Background()))

	messages, cancel := m.Messages().Subscribe()
	defer cancel()

	transport.handler(0)(EventReceiveMessage, []json.RawMessage{json.RawMessage(`{"id":1}`)})
	transport.handler(1)(EventReceiveMessage, []json.RawMessage{json.RawMessage(`{"id":2}`)})

	msg := <-messages
	assert.Equal(t, 2, msg.ID)
	assert.Len(t, messages, 0)
}

func TestTypingCalls(t *testing.T) {
	transport := &fakeTransport{}
	off := newTestManager(t, transport, Config{})
	require.NoError(t, off.StartConnection(context.Background()))
	require.NoError(t, off.StartTyping(context.Background(), 3))
	assert.Empty(t, transport.session(0).targets())

	on := newTestManager(t, transport, Config{TypingSupported: true})
	require.NoError(t, on.StartConnection(context.Background()))
	require.NoError(t, on.StartTyping(context.Background(), 3))
	require.NoError(t, on.StopTyping(context.Background(), 3))
	assert.Equal(t, []string{TargetStartTyping, TargetStopTyping}, transport.session(1).targets())
}

func TestCloseEndsStreams(t *testing.T) {
	m := newTestManager(t, &fakeTransport{}, Config{})
	states, _ := m.States().Subscribe()
	require.NoError(t, m.Close())

	_, ok := <-states
	assert.False(t, ok)
	assert.ErrorIs(t, m.StartConnection(context.Background()), ErrManagerClosed)
}
