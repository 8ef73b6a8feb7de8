package models

import "time"

// ConversationType distinguishes two-party chats from groups.
type ConversationType string

const (
	DirectConversation ConversationType = "direct"
	GroupConversation  ConversationType = "group"
)

// Participant is a member of a conversation.
type Participant struct {
	UserID   int    `json:"userId"`
	UserName string `json:"userName"`
}

// Conversation is the canonical conversation summary.
type Conversation struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Type         ConversationType `json:"type"`
	Participants []Participant    `json:"participants"`
	LastMessage  *Message         `json:"lastMessage,omitempty"`
	UnreadCount  int              `json:"unreadCount"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
