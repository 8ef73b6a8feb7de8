package connection

import (
	"context"
	"time"

	"chat-session/internal/models"
	"chat-session/internal/observability"
)

// reconnect retries the handshake with exponential backoff until it
// succeeds, the attempt is superseded, or the attempt cap is reached.
func (m *Manager) reconnect(ctx context.Context, a *attempt, last error) {
	defer a.cancel()
	b := m.newBackOff()

	for {
		m.mu.Lock()
		if m.attemptID != a.id {
			m.mu.Unlock()
			return
		}
		if m.reconnectAttempts >= m.cfg.MaxReconnectAttempts {
			exhausted := &ReconnectExhaustedError{Attempts: m.reconnectAttempts, Last: last}
			m.clearAttemptLocked()
			m.transition(models.Disconnected, exhausted)
			m.mu.Unlock()

			a.finish(exhausted)
			m.logger.Error("giving up on hub reconnect", "attempts", exhausted.Attempts, "error", last)
			m.emit(observability.EventReconnectExhausted, a.id, exhausted.Attempts, last)
			return
		}
		m.reconnectAttempts++
		n := m.reconnectAttempts
		m.mu.Unlock()
		observability.IncReconnectAttempt()

		delay := b.NextBackOff()
		m.logger.Info("reconnecting to hub", "attempt", n, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		sess, err := m.dial(ctx, a.id)
		if err != nil {
			last = err
			m.logger.Warn("hub reconnect attempt failed", "attempt", n, "error", err)
			continue
		}

		m.mu.Lock()
		if m.attemptID != a.id {
			m.mu.Unlock()
			sess.Close()
			return
		}
		m.adoptLocked(sess)
		joined := m.joinedLocked()
		m.mu.Unlock()

		a.finish(nil)
		go m.watch(a.id, sess)
		m.rejoin(ctx, sess, joined)
		m.logger.Info("hub reconnected", "attempt", n, "rejoined", len(joined))
		m.emit(observability.EventConnected, a.id, n, nil)
		return
	}
}

func (m *Manager) joinedLocked() []int {
	ids := make([]int, 0, len(m.joined))
	for id := range m.joined {
		ids = append(ids, id)
	}
	return ids
}

// rejoin re-issues join calls for the conversations joined before the drop.
func (m *Manager) rejoin(ctx context.Context, sess Session, ids []int) {
	for _, id := range ids {
		callCtx, cancel := context.WithTimeout(ctx, rejoinTimeout)
		_, err := sess.Invoke(callCtx, TargetJoinConversation, id)
		cancel()
		if err != nil {
			m.logger.Warn("rejoin failed", "conversation_id", id, "error", err)
		}
	}
}
