package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/trace"

	"chat-session/internal/mocks"
	"chat-session/internal/observability"
)

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := observability.NewEmitter(pub, "chat-session", "test", nil)

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{0x01},
	}))

	pub.On("Publish", mock.Anything, observability.EventConnected,
		mock.MatchedBy(func(env observability.EventEnvelope) bool {
			return env.SchemaVersion == 1 &&
				env.EventType == observability.EventConnected &&
				env.Service == "chat-session" &&
				env.Environment == "test" &&
				env.OccurredAt != "" &&
				env.Payload == "attempt-1"
		}),
		map[string]string{"trace_id": traceID.String()},
	).Return(nil).Once()

	emitter.Emit(ctx, observability.EventConnected, "attempt-1")
	pub.AssertExpectations(t)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := observability.NewEmitter(pub, "chat-session", "test", nil)
	pub.On("Publish", mock.Anything, observability.EventDisconnected, mock.Anything, map[string]string{}).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), observability.EventDisconnected, nil)
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *observability.Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), observability.EventReconnecting, nil)
	})
}

func TestBuildHeaders(t *testing.T) {
	assert.Empty(t, observability.BuildHeaders("", ""))
	assert.Equal(t, map[string]string{"x-request-id": "r1", "trace_id": "t1"}, observability.BuildHeaders("r1", "t1"))
}
