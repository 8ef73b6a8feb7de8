// Package normalize converts backend payloads of any known naming convention
// into the canonical models. Every function is pure: no I/O and no shared
// state beyond the injected clock.
package normalize

import (
	"time"

	"github.com/tidwall/gjson"

	"chat-session/internal/models"
)

// Normalizer holds the clock used for missing timestamps.
type Normalizer struct {
	Now func() time.Time
}

// Default uses the wall clock.
var Default = Normalizer{Now: time.Now}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Message normalizes raw into a canonical Message using the default clock.
func Message(raw []byte) models.Message { return Default.Message(raw) }

// Conversation normalizes raw into a canonical Conversation.
func Conversation(raw []byte) models.Conversation { return Default.Conversation(raw) }

// Presence normalizes a user-connected/disconnected payload.
func Presence(raw []byte, online bool) models.PresenceEvent { return Default.Presence(raw, online) }

// Typing normalizes a user-typing payload.
func Typing(raw []byte) models.TypingEvent { return Default.Typing(raw) }

// Receipt normalizes a delivered/read acknowledgement payload.
func Receipt(raw []byte) models.Receipt { return Default.Receipt(raw) }

// Message normalizes raw into a canonical Message.
func (n Normalizer) Message(raw []byte) models.Message {
	return n.messageFrom(unwrapMessage(gjson.ParseBytes(raw)))
}

func (n Normalizer) messageFrom(doc gjson.Result) models.Message {
	return models.Message{
		ID:              intOf(doc, MessageFields.ID),
		ConversationID:  intOf(doc, MessageFields.ConversationID),
		SenderID:        intOf(doc, MessageFields.SenderID),
		SenderName:      stringOf(doc, MessageFields.SenderName),
		Content:         stringOf(doc, MessageFields.Content),
		Type:            messageTypeOf(doc),
		Timestamp:       timeOf(doc, MessageFields.Timestamp, n.now),
		IsRead:          boolOf(doc, MessageFields.IsRead, false),
		OriginalContent: stringOf(doc, MessageFields.OriginalContent),
	}
}

// unwrapMessage descends into a known envelope when the top level carries no
// message content of its own.
func unwrapMessage(doc gjson.Result) gjson.Result {
	if _, ok := MessageFields.Content.Lookup(doc); ok {
		return doc
	}
	if _, ok := MessageFields.ID.Lookup(doc); ok {
		return doc
	}
	for _, key := range messageEnvelopes {
		if inner := doc.Get(key); inner.IsObject() {
			return inner
		}
	}
	return doc
}

// Presence normalizes a presence payload. Bare numeric or string payloads are
// treated as the user id.
func (n Normalizer) Presence(raw []byte, online bool) models.PresenceEvent {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.PresenceEvent{UserID: scalarInt(doc), IsOnline: online}
	}
	return models.PresenceEvent{
		UserID:   intOf(doc, EventFields.UserID),
		IsOnline: boolOf(doc, EventFields.IsOnline, online),
	}
}

// Typing normalizes a typing payload. A missing flag means the user is typing.
func (n Normalizer) Typing(raw []byte) models.TypingEvent {
	doc := gjson.ParseBytes(raw)
	return models.TypingEvent{
		ConversationID: intOf(doc, EventFields.ConversationID),
		UserID:         intOf(doc, EventFields.UserID),
		UserName:       stringOf(doc, EventFields.UserName),
		IsTyping:       boolOf(doc, EventFields.IsTyping, true),
		Timestamp:      timeOf(doc, EventFields.Timestamp, n.now),
	}
}

// Receipt normalizes an acknowledgement. Bare payloads are the message id.
func (n Normalizer) Receipt(raw []byte) models.Receipt {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.Receipt{MessageID: scalarInt(doc), Timestamp: n.now().UTC()}
	}
	return models.Receipt{
		MessageID:      intOf(doc, EventFields.MessageID),
		ConversationID: intOf(doc, EventFields.ConversationID),
		UserID:         intOf(doc, EventFields.UserID),
		Timestamp:      timeOf(doc, EventFields.Timestamp, n.now),
	}
}

func scalarInt(doc gjson.Result) int {
	switch doc.Type {
	case gjson.Number, gjson.String:
		return int(doc.Int())
	}
	return 0
}
