package session

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"chat-session/internal/api"
	"chat-session/internal/models"
	"chat-session/internal/normalize"
)

// ContactService is the backend contact surface. CheckPermission is the only
// authority on whether a pair may chat.
type ContactService interface {
	CheckPermission(ctx context.Context, peerID int) (bool, error)
	CreateConversation(ctx context.Context, peerID int) (models.Conversation, error)
	SendContactRequest(ctx context.Context, peerID int) error
}

type ContactStatus string

const (
	ContactCreated ContactStatus = "created"
	ContactPending ContactStatus = "pending"
)

// ContactOutcome reports what StartConversation did. Conversation is set
// only when Status is ContactCreated.
type ContactOutcome struct {
	Status       ContactStatus        `json:"status"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// HTTPContactService implements ContactService against the REST API.
type HTTPContactService struct {
	client *api.Client
}

func NewHTTPContactService(client *api.Client) *HTTPContactService {
	return &HTTPContactService{client: client}
}

var permissionFields = []string{"allowed", "permitido", "canChat", "puedeChatear"}

func (s *HTTPContactService) CheckPermission(ctx context.Context, peerID int) (bool, error) {
	body, err := s.client.GetJSON(ctx, fmt.Sprintf("/contacts/permission?peerId=%d", peerID))
	if err != nil {
		return false, fmt.Errorf("check contact permission for %d: %w", peerID, err)
	}
	doc := gjson.ParseBytes(body)
	if doc.Type == gjson.True || doc.Type == gjson.False {
		return doc.Bool(), nil
	}
	for _, field := range permissionFields {
		if v := doc.Get(field); v.Exists() {
			return v.Bool(), nil
		}
	}
	return false, nil
}

func (s *HTTPContactService) CreateConversation(ctx context.Context, peerID int) (models.Conversation, error) {
	body, err := s.client.PostJSON(ctx, "/conversations", map[string]any{
		"participantId": peerID,
		"type":          models.DirectConversation,
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation with %d: %w", peerID, err)
	}
	return normalize.Conversation(body), nil
}

func (s *HTTPContactService) SendContactRequest(ctx context.Context, peerID int) error {
	if _, err := s.client.PostJSON(ctx, "/contacts/requests", map[string]int{"peerId": peerID}); err != nil {
		return fmt.Errorf("send contact request to %d: %w", peerID, err)
	}
	return nil
}
