package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Lifecycle event types.
const (
	EventConnected          = "session.connected"
	EventDisconnected       = "session.disconnected"
	EventReconnecting       = "session.reconnecting"
	EventReconnectExhausted = "session.reconnect_exhausted"
	EventPolicyResolved     = "session.policy_resolved"
)

// Publisher delivers a JSON event to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type EventEnvelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	Payload       any    `json:"payload"`
}

// Emitter publishes session lifecycle events. A nil Emitter is a no-op.
type Emitter struct {
	publisher   Publisher
	service     string
	environment string
	logger      *slog.Logger
}

func NewEmitter(publisher Publisher, service, environment string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
		logger:      logger,
	}
}

// Emit publishes eventType with payload. The event type doubles as routing
// key. Publish failures are logged and counted, never returned.
func (e *Emitter) Emit(ctx context.Context, eventType string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := EventEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Payload:       payload,
	}

	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}

	if err := e.publisher.Publish(ctx, eventType, envelope, BuildHeaders("", traceID)); err != nil {
		IncAMQPPublishError()
		e.logger.Warn("lifecycle event publish failed", "event_type", eventType, "error", err)
	}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
