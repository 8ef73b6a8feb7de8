package session

import (
	"context"

	"chat-session/internal/connection"
	"chat-session/internal/models"
)

// Handlers are the UI callbacks. Nil handlers are skipped.
type Handlers struct {
	OnMessage     func(models.Message)
	OnDelivered   func(models.Receipt)
	OnRead        func(models.Receipt)
	OnPresence    func(models.PresenceEvent)
	OnTyping      func(models.TypingEvent)
	OnStateChange func(connection.StateChange)
}

// Run delivers inbound events to h until ctx is done or the connection
// streams end. Each stream keeps its transport order.
func (o *Orchestrator) Run(ctx context.Context, h Handlers) error {
	states, cancelStates := o.conn.States().Subscribe()
	defer cancelStates()
	messages, cancelMessages := o.conn.Messages().Subscribe()
	defer cancelMessages()
	delivered, cancelDelivered := o.conn.Delivered().Subscribe()
	defer cancelDelivered()
	read, cancelRead := o.conn.Read().Subscribe()
	defer cancelRead()
	presence, cancelPresence := o.conn.Presence().Subscribe()
	defer cancelPresence()
	typing, cancelTyping := o.conn.TypingEvents().Subscribe()
	defer cancelTyping()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-states:
			if !ok {
				return nil
			}
			if h.OnStateChange != nil {
				h.OnStateChange(c)
			}
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			if h.OnMessage != nil {
				h.OnMessage(o.translate(ctx, m))
			}
		case r, ok := <-delivered:
			if !ok {
				return nil
			}
			if h.OnDelivered != nil {
				h.OnDelivered(r)
			}
		case r, ok := <-read:
			if !ok {
				return nil
			}
			if h.OnRead != nil {
				h.OnRead(r)
			}
		case p, ok := <-presence:
			if !ok {
				return nil
			}
			if h.OnPresence != nil {
				h.OnPresence(p)
			}
		case t, ok := <-typing:
			if !ok {
				return nil
			}
			if h.OnTyping != nil {
				h.OnTyping(t)
			}
		}
	}
}

// translate returns m translated into the session language, or m unchanged
// when translation is off, not needed or fails.
func (o *Orchestrator) translate(ctx context.Context, m models.Message) models.Message {
	if o.cfg.Translator == nil || o.cfg.Language == "" || m.Content == "" || m.Type != models.TextMessage {
		return m
	}
	ctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	translated, err := o.cfg.Translator.Translate(ctx, m.Content, o.cfg.Language)
	if err != nil {
		o.logger.Warn("translation failed, delivering original", "message_id", m.ID, "error", err)
		return m
	}
	if translated == "" || translated == m.Content {
		return m
	}
	return m.WithTranslation(translated)
}
