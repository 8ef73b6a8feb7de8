package models

import "time"

// MessageType is the canonical content kind of a message.
type MessageType string

const (
	TextMessage   MessageType = "text"
	ImageMessage  MessageType = "image"
	FileMessage   MessageType = "file"
	AudioMessage  MessageType = "audio"
	SystemMessage MessageType = "system"
)

// Valid reports whether t is one of the canonical message types.
func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, ImageMessage, FileMessage, AudioMessage, SystemMessage:
		return true
	}
	return false
}

// Message is the canonical chat message. Values are never mutated after
// construction; derived variants are returned as copies.
type Message struct {
	ID              int         `json:"id"`
	ConversationID  int         `json:"conversationId"`
	SenderID        int         `json:"senderId"`
	SenderName      string      `json:"senderName"`
	Content         string      `json:"content"`
	Type            MessageType `json:"type"`
	Timestamp       time.Time   `json:"timestamp"`
	IsRead          bool        `json:"isRead"`
	OriginalContent string      `json:"originalContent,omitempty"`
}

// WithTranslation returns a copy of m whose content is translated and whose
// OriginalContent keeps the source text.
func (m Message) WithTranslation(translated string) Message {
	out := m
	if out.OriginalContent == "" {
		out.OriginalContent = m.Content
	}
	out.Content = translated
	return out
}

// Translated reports whether m carries an original content.
func (m Message) Translated() bool {
	return m.OriginalContent != ""
}
