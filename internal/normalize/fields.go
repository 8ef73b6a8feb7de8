package normalize

import "github.com/tidwall/gjson"

// Naming conventions observed in backend payloads.
const (
	Business = "business" // PascalCase domain names, e.g. MensajeId
	Flat     = "flat"     // lower-flattened domain names, e.g. mensajeid
	Legacy   = "legacy"   // camelCase English names, also the canonical shape
	Extra    = "extra"    // one-off aliases seen on specific endpoints
)

// Extractor reads one candidate location of a canonical field.
type Extractor struct {
	Convention string
	Path       string
}

// Field is an ordered extractor chain. The first non-null value wins.
type Field []Extractor

func chain(business, flat, legacy string, extra ...string) Field {
	f := Field{
		{Convention: Business, Path: business},
		{Convention: Flat, Path: flat},
		{Convention: Legacy, Path: legacy},
	}
	for _, p := range extra {
		f = append(f, Extractor{Convention: Extra, Path: p})
	}
	return f
}

// Lookup returns the first non-null value of the chain in doc.
func (f Field) Lookup(doc gjson.Result) (gjson.Result, bool) {
	for _, ex := range f {
		v := doc.Get(ex.Path)
		if v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// Convention returns the convention of the first extractor that matched.
func (f Field) Convention(doc gjson.Result) string {
	for _, ex := range f {
		v := doc.Get(ex.Path)
		if v.Exists() && v.Type != gjson.Null {
			return ex.Convention
		}
	}
	return ""
}

// MessageFields is the extractor table for Message.
var MessageFields = struct {
	ID, ConversationID, SenderID, SenderName, Content, Type, Timestamp, IsRead, OriginalContent Field
}{
	ID:              chain("MensajeId", "mensajeid", "id", "IdMensaje", "message_id"),
	ConversationID:  chain("ConversacionId", "conversacionid", "conversationId", "IdConversacion", "conversation_id"),
	SenderID:        chain("RemitenteId", "remitenteid", "senderId", "UsuarioId", "sender_id"),
	SenderName:      chain("NombreRemitente", "nombreremitente", "senderName", "NombreUsuario", "sender_name"),
	Content:         chain("Contenido", "contenido", "content", "Texto", "text"),
	Type:            chain("TipoMensaje", "tipomensaje", "type", "Tipo", "message_type"),
	Timestamp:       chain("FechaEnvio", "fechaenvio", "timestamp", "Fecha", "sentAt", "createdAt", "created_at"),
	IsRead:          chain("Leido", "leido", "isRead", "is_read"),
	OriginalContent: chain("ContenidoOriginal", "contenidooriginal", "originalContent"),
}

// messageEnvelopes are wrapper keys some acknowledgements put around a message.
var messageEnvelopes = []string{"message", "Mensaje", "mensaje", "data", "Data"}

// ConversationFields is the extractor table for Conversation.
var ConversationFields = struct {
	ID, Name, DisplayName, Type, IsGroup, Participants, OtherUserID, LastMessage, UnreadCount, UpdatedAt Field
}{
	ID:           chain("ConversacionId", "conversacionid", "id", "IdConversacion", "conversation_id"),
	Name:         chain("Nombre", "nombre", "name", "title"),
	DisplayName:  chain("NombreMostrar", "nombremostrar", "displayName", "NombreContacto", "display_name"),
	Type:         chain("TipoConversacion", "tipoconversacion", "type", "Tipo"),
	IsGroup:      chain("EsGrupo", "esgrupo", "isGroup", "is_group"),
	Participants: chain("Participantes", "participantes", "participants", "miembros", "members"),
	OtherUserID:  chain("OtroUsuarioId", "otrousuarioid", "otherUserId", "contactId"),
	LastMessage:  chain("UltimoMensaje", "ultimomensaje", "lastMessage", "last_message"),
	UnreadCount:  chain("MensajesNoLeidos", "mensajesnoleidos", "unreadCount", "unread_count"),
	UpdatedAt:    chain("FechaActualizacion", "fechaactualizacion", "updatedAt", "updated_at"),
}

// ParticipantFields is the extractor table for Participant.
var ParticipantFields = struct {
	UserID, UserName Field
}{
	UserID:   chain("UsuarioId", "usuarioid", "userId", "id", "user_id"),
	UserName: chain("NombreUsuario", "nombreusuario", "userName", "name", "nombre"),
}

// EventFields is the extractor table shared by presence, typing and receipts.
var EventFields = struct {
	UserID, UserName, ConversationID, MessageID, IsOnline, IsTyping, Timestamp Field
}{
	UserID:         chain("UsuarioId", "usuarioid", "userId", "user_id"),
	UserName:       chain("NombreUsuario", "nombreusuario", "userName", "user_name"),
	ConversationID: chain("ConversacionId", "conversacionid", "conversationId", "conversation_id"),
	MessageID:      chain("MensajeId", "mensajeid", "messageId", "message_id", "id"),
	IsOnline:       chain("EnLinea", "enlinea", "isOnline", "online"),
	IsTyping:       chain("EstaEscribiendo", "estaescribiendo", "isTyping", "typing"),
	Timestamp:      chain("Fecha", "fecha", "timestamp", "FechaEnvio"),
}
