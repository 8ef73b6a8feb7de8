package models

import "time"

// PresenceEvent reports a user going online or offline.
type PresenceEvent struct {
	UserID   int  `json:"userId"`
	IsOnline bool `json:"isOnline"`
}

// TypingEvent reports typing activity in a conversation.
type TypingEvent struct {
	ConversationID int       `json:"conversationId"`
	UserID         int       `json:"userId"`
	UserName       string    `json:"userName"`
	IsTyping       bool      `json:"isTyping"`
	Timestamp      time.Time `json:"timestamp"`
}

// Receipt acknowledges delivery or reading of a message.
type Receipt struct {
	MessageID      int       `json:"messageId"`
	ConversationID int       `json:"conversationId"`
	UserID         int       `json:"userId"`
	Timestamp      time.Time `json:"timestamp"`
}
