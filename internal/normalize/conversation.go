package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"chat-session/internal/models"
)

var conversationTypeAliases = map[string]models.ConversationType{
	"direct":     models.DirectConversation,
	"directa":    models.DirectConversation,
	"individual": models.DirectConversation,
	"private":    models.DirectConversation,
	"privada":    models.DirectConversation,
	"group":      models.GroupConversation,
	"grupo":      models.GroupConversation,
	"grupal":     models.GroupConversation,
}

// Conversation normalizes raw into a canonical Conversation. A direct
// conversation without a participant list but with a display name gets a
// single synthesized participant.
func (n Normalizer) Conversation(raw []byte) models.Conversation {
	doc := gjson.ParseBytes(raw)

	participants := participantsOf(doc)
	conv := models.Conversation{
		ID:           intOf(doc, ConversationFields.ID),
		Name:         stringOf(doc, ConversationFields.Name),
		Participants: participants,
		UnreadCount:  intOf(doc, ConversationFields.UnreadCount),
		UpdatedAt:    timeOf(doc, ConversationFields.UpdatedAt, n.now),
	}
	conv.Type = conversationTypeOf(doc, len(participants))

	displayName := stringOf(doc, ConversationFields.DisplayName)
	if conv.Name == "" {
		conv.Name = displayName
	}
	if len(conv.Participants) == 0 && displayName != "" && conv.Type == models.DirectConversation {
		conv.Participants = []models.Participant{{
			UserID:   intOf(doc, ConversationFields.OtherUserID),
			UserName: displayName,
		}}
	}

	if last, ok := ConversationFields.LastMessage.Lookup(doc); ok && last.IsObject() {
		msg := n.messageFrom(last)
		conv.LastMessage = &msg
	}
	return conv
}

func participantsOf(doc gjson.Result) []models.Participant {
	out := []models.Participant{}
	list, ok := ConversationFields.Participants.Lookup(doc)
	if !ok || !list.IsArray() {
		return out
	}
	for _, item := range list.Array() {
		if !item.IsObject() {
			if id := scalarInt(item); id != 0 {
				out = append(out, models.Participant{UserID: id})
			}
			continue
		}
		out = append(out, models.Participant{
			UserID:   intOf(item, ParticipantFields.UserID),
			UserName: stringOf(item, ParticipantFields.UserName),
		})
	}
	return out
}

func conversationTypeOf(doc gjson.Result, participants int) models.ConversationType {
	if v, ok := ConversationFields.Type.Lookup(doc); ok && v.Type == gjson.String {
		if t, ok := conversationTypeAliases[strings.ToLower(strings.TrimSpace(v.Str))]; ok {
			return t
		}
	}
	if _, ok := ConversationFields.IsGroup.Lookup(doc); ok {
		if boolOf(doc, ConversationFields.IsGroup, false) {
			return models.GroupConversation
		}
		return models.DirectConversation
	}
	if participants > 2 {
		return models.GroupConversation
	}
	return models.DirectConversation
}
