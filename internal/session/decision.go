package session

import "chat-session/internal/models"

// Reason explains a rejected outbound action.
type Reason string

const (
	MessageTooLong  Reason = "MessageTooLong"
	RateLimited     Reason = "RateLimited"
	FeatureDisabled Reason = "FeatureDisabled"
)

// Decision is the policy verdict for an outbound action.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func reject(r Reason) Decision { return Decision{Reason: r} }

// SendResult carries either the sent message or the rejection.
type SendResult struct {
	Decision Decision
	Message  models.Message
}
