// Package session gates outbound actions through the effective policy and
// routes normalized inbound events to UI callbacks.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"

	"chat-session/internal/connection"
	"chat-session/internal/models"
	"chat-session/internal/observability"
	"chat-session/internal/policy"
	"chat-session/internal/ws"
)

// ErrNoContactService is returned by StartConversation when no contact
// service is configured.
var ErrNoContactService = errors.New("session: no contact service configured")

const translateTimeout = 5 * time.Second

// Connection is the part of connection.Manager the orchestrator drives.
type Connection interface {
	StartConnection(ctx context.Context) error
	StopConnection()
	SendMessage(ctx context.Context, conversationID int, content string, msgType models.MessageType) (models.Message, error)
	State() models.ConnectionState
	ReconnectAttempts() int
	JoinedConversations() []int

	States() *connection.Stream[connection.StateChange]
	Messages() *connection.Stream[models.Message]
	Delivered() *connection.Stream[models.Receipt]
	Read() *connection.Stream[models.Receipt]
	Presence() *connection.Stream[models.PresenceEvent]
	TypingEvents() *connection.Stream[models.TypingEvent]
}

// PolicySource resolves and serves the effective policy.
type PolicySource interface {
	Current() policy.EffectivePolicy
	Resolve(ctx context.Context, applicationID, companyID int) policy.Resolution
	BindCompany(ctx context.Context, companyID int) policy.Resolution
	Bound() (applicationID, companyID int)
}

type Config struct {
	ApplicationID int
	CompanyID     int
	// Language is the translation target. Empty disables translation.
	Language string

	Contacts   ContactService
	Translator Translator
	Logger     *slog.Logger
	// Now overrides the rate limiter clock.
	Now func() time.Time
}

// Orchestrator is the session facade used by the UI layer.
type Orchestrator struct {
	conn     Connection
	policies PolicySource
	cfg      Config
	logger   *slog.Logger
	window   *slidingWindow
}

func NewOrchestrator(conn Connection, policies PolicySource, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		conn:     conn,
		policies: policies,
		cfg:      cfg,
		logger:   logger.With("component", "session"),
		window:   newSlidingWindow(cfg.Now),
	}
}

// Start resolves the policy and connects to the hub. A failed connect is
// returned as is; the manager does not retry it.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.resolve(ctx)
	return o.conn.StartConnection(ctx)
}

// StartWithRetry resolves the policy, then retries the initial connect on
// schedule b until it succeeds, ctx ends or the hub rejects the handshake.
func (o *Orchestrator) StartWithRetry(ctx context.Context, b backoff.BackOff) error {
	o.resolve(ctx)
	connect := func() error {
		err := o.conn.StartConnection(ctx)
		if ws.IsRejected(err) || errors.Is(err, connection.ErrManagerClosed) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(connect, backoff.WithContext(b, ctx), func(err error, delay time.Duration) {
		o.logger.Warn("initial hub connection failed, retrying", "delay", delay, "error", err)
	})
}

func (o *Orchestrator) resolve(ctx context.Context) {
	res := o.policies.Resolve(ctx, o.cfg.ApplicationID, o.cfg.CompanyID)
	for _, d := range res.Degraded {
		o.logger.Warn("starting with degraded configuration", "error", d)
	}
}

// BindCompany re-resolves the policy for a newly selected company.
func (o *Orchestrator) BindCompany(ctx context.Context, companyID int) policy.Resolution {
	return o.policies.BindCompany(ctx, companyID)
}

// Close stops the hub connection.
func (o *Orchestrator) Close() {
	o.conn.StopConnection()
}

// CanSend checks content against the message length limit and the send rate.
// An allowed decision consumes one slot of the rate window.
func (o *Orchestrator) CanSend(content string) Decision {
	limits := o.policies.Current().Limits
	if limits.MaxMessageLength != nil && utf8.RuneCountInString(content) > *limits.MaxMessageLength {
		return o.rejected(MessageTooLong)
	}
	if !o.window.allow(limits.MaxRequestsPerMinute) {
		return o.rejected(RateLimited)
	}
	return allow()
}

// CanUseFeature reads a feature flag from the current policy.
func (o *Orchestrator) CanUseFeature(f policy.Feature) bool {
	return o.policies.Current().Enabled(f)
}

// Send gates and sends a text message.
func (o *Orchestrator) Send(ctx context.Context, conversationID int, content string) (SendResult, error) {
	return o.send(ctx, conversationID, content, models.TextMessage)
}

// SendAttachment gates an attachment on its feature flag before the length
// and rate checks.
func (o *Orchestrator) SendAttachment(ctx context.Context, conversationID int, content string, msgType models.MessageType) (SendResult, error) {
	if f, ok := attachmentFeature(msgType); ok && !o.CanUseFeature(f) {
		return SendResult{Decision: o.rejected(FeatureDisabled)}, nil
	}
	return o.send(ctx, conversationID, content, msgType)
}

func attachmentFeature(t models.MessageType) (policy.Feature, bool) {
	switch t {
	case models.ImageMessage, models.FileMessage:
		return policy.FeatureFileSharing, true
	case models.AudioMessage:
		return policy.FeatureVoiceMessages, true
	}
	return "", false
}

func (o *Orchestrator) send(ctx context.Context, conversationID int, content string, msgType models.MessageType) (SendResult, error) {
	d := o.CanSend(content)
	if !d.Allowed {
		return SendResult{Decision: d}, nil
	}
	msg, err := o.conn.SendMessage(ctx, conversationID, content, msgType)
	if err != nil {
		return SendResult{Decision: d}, err
	}
	return SendResult{Decision: d, Message: msg}, nil
}

func (o *Orchestrator) rejected(r Reason) Decision {
	observability.IncPolicyRejection(string(r))
	o.logger.Debug("outbound action rejected", "reason", r)
	return reject(r)
}

// StartConversation opens a direct conversation with peerID. When the policy
// requires it, the permission endpoint must allow the pair first; otherwise
// a contact request is sent and the outcome is pending.
func (o *Orchestrator) StartConversation(ctx context.Context, peerID int) (ContactOutcome, error) {
	contacts := o.cfg.Contacts
	if contacts == nil {
		return ContactOutcome{}, ErrNoContactService
	}

	if o.policies.Current().RequiresPermissionCheck() {
		allowed, err := contacts.CheckPermission(ctx, peerID)
		if err != nil {
			return ContactOutcome{}, err
		}
		if !allowed {
			if err := contacts.SendContactRequest(ctx, peerID); err != nil {
				return ContactOutcome{}, err
			}
			o.logger.Info("contact request sent", "peer_id", peerID)
			return ContactOutcome{Status: ContactPending}, nil
		}
	}

	conv, err := contacts.CreateConversation(ctx, peerID)
	if err != nil {
		return ContactOutcome{}, err
	}
	return ContactOutcome{Status: ContactCreated, Conversation: &conv}, nil
}

// Status is a point-in-time view of the session.
type Status struct {
	State               models.ConnectionState `json:"state"`
	ReconnectAttempts   int                    `json:"reconnectAttempts"`
	JoinedConversations []int                  `json:"joinedConversations"`
	ApplicationID       int                    `json:"applicationId"`
	CompanyID           int                    `json:"companyId"`
	SendsInWindow       int                    `json:"sendsInWindow"`
}

func (o *Orchestrator) Status() Status {
	appID, companyID := o.policies.Bound()
	return Status{
		State:               o.conn.State(),
		ReconnectAttempts:   o.conn.ReconnectAttempts(),
		JoinedConversations: o.conn.JoinedConversations(),
		ApplicationID:       appID,
		CompanyID:           companyID,
		SendsInWindow:       o.window.count(),
	}
}

// Policy returns the current effective policy.
func (o *Orchestrator) Policy() policy.EffectivePolicy {
	return o.policies.Current()
}
