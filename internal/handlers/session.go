package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-session/internal/connection"
	"chat-session/internal/models"
	"chat-session/internal/policy"
	"chat-session/internal/session"
)

// sessionService is the part of session.Orchestrator exposed over HTTP.
type sessionService interface {
	Status() session.Status
	Policy() policy.EffectivePolicy
	BindCompany(ctx context.Context, companyID int) policy.Resolution
	StartConversation(ctx context.Context, peerID int) (session.ContactOutcome, error)
	Send(ctx context.Context, conversationID int, content string) (session.SendResult, error)
	SendAttachment(ctx context.Context, conversationID int, content string, msgType models.MessageType) (session.SendResult, error)
}

// SessionHandler serves the local session control endpoints.
type SessionHandler struct {
	svc    sessionService
	logger *slog.Logger
}

func NewSessionHandler(svc sessionService, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{svc: svc, logger: logger.With("component", "debug_http")}
}

// GetStatus handles GET /session.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// GetPolicy handles GET /session/policy.
func (h *SessionHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Policy())
}

// BindCompany handles PUT /session/company.
func (h *SessionHandler) BindCompany(c *gin.Context) {
	var req struct {
		CompanyID int `json:"companyId" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.svc.BindCompany(c.Request.Context(), req.CompanyID)
	degraded := make([]string, 0, len(res.Degraded))
	for _, d := range res.Degraded {
		degraded = append(degraded, d.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"policy":     res.Policy,
		"generation": res.Generation,
		"published":  res.Published,
		"degraded":   degraded,
	})
}

// StartConversation handles POST /session/conversations.
func (h *SessionHandler) StartConversation(c *gin.Context) {
	var req struct {
		PeerID int `json:"peerId" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.svc.StartConversation(c.Request.Context(), req.PeerID)
	if err != nil {
		h.fail(c, "start conversation", err)
		return
	}
	status := http.StatusCreated
	if outcome.Status == session.ContactPending {
		status = http.StatusAccepted
	}
	c.JSON(status, outcome)
}

// PostMessage handles POST /session/conversations/:conversation_id/messages.
func (h *SessionHandler) PostMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
		return
	}

	var req struct {
		Content string             `json:"content" binding:"required"`
		Type    models.MessageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = models.TextMessage
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message type"})
		return
	}

	var res session.SendResult
	if req.Type == models.TextMessage {
		res, err = h.svc.Send(c.Request.Context(), conversationID, req.Content)
	} else {
		res, err = h.svc.SendAttachment(c.Request.Context(), conversationID, req.Content, req.Type)
	}
	if err != nil {
		h.fail(c, "send message", err)
		return
	}
	if !res.Decision.Allowed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"decision": res.Decision})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"decision": res.Decision, "message": res.Message})
}

func (h *SessionHandler) fail(c *gin.Context, op string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, connection.ErrNotConnected):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrNoContactService):
		status = http.StatusNotImplemented
	}
	h.logger.Warn(op+" failed", "request_id", requestIDFromContext(c), "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}
