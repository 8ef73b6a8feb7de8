package connection

import (
	"encoding/json"

	"chat-session/internal/observability"
	"chat-session/internal/ws"
)

// Hub events consumed by the manager.
const (
	EventReceiveMessage   = "ReceiveMessage"
	EventMessageDelivered = "MessageDelivered"
	EventMessageRead      = "MessageRead"
	EventUserConnected    = "UserConnected"
	EventUserDisconnected = "UserDisconnected"
	EventUserTyping       = "UserTyping"
)

// inbound returns the invocation handler for one attempt. Records that
// arrive after the attempt stopped being current are dropped.
func (m *Manager) inbound(attemptID string) ws.InvocationHandler {
	return func(target string, args []json.RawMessage) {
		if !m.current(attemptID) {
			m.logger.Debug("dropping event from stale attempt", "attempt_id", attemptID, "target", target)
			return
		}
		var payload []byte
		if len(args) > 0 {
			payload = args[0]
		}

		switch target {
		case EventReceiveMessage:
			m.messages.publish(m.normalizer.Message(payload))
		case EventMessageDelivered:
			m.delivered.publish(m.normalizer.Receipt(payload))
		case EventMessageRead:
			m.read.publish(m.normalizer.Receipt(payload))
		case EventUserConnected:
			m.presence.publish(m.normalizer.Presence(payload, true))
		case EventUserDisconnected:
			m.presence.publish(m.normalizer.Presence(payload, false))
		case EventUserTyping:
			m.typing.publish(m.normalizer.Typing(payload))
		default:
			m.logger.Debug("ignoring hub event", "target", target)
			return
		}
		observability.IncInboundEvent(target)
	}
}
