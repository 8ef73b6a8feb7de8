package connection

import (
	"bytes"
	"context"
	"fmt"

	"chat-session/internal/models"
)

// SendMessage sends content to a conversation and returns the message built
// from the hub acknowledgement.
func (m *Manager) SendMessage(ctx context.Context, conversationID int, content string, msgType models.MessageType) (models.Message, error) {
	sess, ok := m.connected()
	if !ok {
		return models.Message{}, ErrNotConnected
	}
	if !msgType.Valid() {
		msgType = models.TextMessage
	}

	ack, err := sess.Invoke(ctx, TargetSendMessage, conversationID, content, string(msgType))
	if err != nil {
		return models.Message{}, fmt.Errorf("send message to conversation %d: %w", conversationID, err)
	}

	msg := m.normalizer.Message(ack)
	if msg.ConversationID == 0 {
		msg.ConversationID = conversationID
	}
	if msg.Content == "" {
		msg.Content = content
	}
	if emptyPayload(ack) {
		msg.Type = msgType
	}
	return msg, nil
}

// JoinConversation subscribes the session to a conversation. Non-positive
// ids are skipped and the call is a logged no-op while not connected.
func (m *Manager) JoinConversation(ctx context.Context, conversationID int) error {
	if conversationID <= 0 {
		m.logger.Debug("skipping join for invalid conversation", "conversation_id", conversationID)
		return nil
	}
	sess, ok := m.connected()
	if !ok {
		m.logger.Info("join skipped, hub not connected", "conversation_id", conversationID)
		return nil
	}
	if _, err := sess.Invoke(ctx, TargetJoinConversation, conversationID); err != nil {
		return fmt.Errorf("join conversation %d: %w", conversationID, err)
	}

	m.mu.Lock()
	m.joined[conversationID] = struct{}{}
	m.mu.Unlock()
	return nil
}

// LeaveConversation unsubscribes from a conversation and stops rejoining it.
func (m *Manager) LeaveConversation(ctx context.Context, conversationID int) error {
	if conversationID <= 0 {
		m.logger.Debug("skipping leave for invalid conversation", "conversation_id", conversationID)
		return nil
	}
	m.mu.Lock()
	delete(m.joined, conversationID)
	m.mu.Unlock()

	sess, ok := m.connected()
	if !ok {
		m.logger.Info("leave skipped, hub not connected", "conversation_id", conversationID)
		return nil
	}
	if _, err := sess.Invoke(ctx, TargetLeaveConversation, conversationID); err != nil {
		return fmt.Errorf("leave conversation %d: %w", conversationID, err)
	}
	return nil
}

func (m *Manager) StartTyping(ctx context.Context, conversationID int) error {
	return m.typingCall(ctx, TargetStartTyping, conversationID)
}

func (m *Manager) StopTyping(ctx context.Context, conversationID int) error {
	return m.typingCall(ctx, TargetStopTyping, conversationID)
}

func (m *Manager) typingCall(ctx context.Context, target string, conversationID int) error {
	if !m.cfg.TypingSupported || conversationID <= 0 {
		return nil
	}
	sess, ok := m.connected()
	if !ok {
		return nil
	}
	if err := sess.Send(ctx, target, conversationID); err != nil {
		return fmt.Errorf("%s %d: %w", target, conversationID, err)
	}
	return nil
}

func emptyPayload(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
