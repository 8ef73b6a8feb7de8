package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-session/internal/api"
	"chat-session/internal/auth"
	"chat-session/internal/models"
)

func newContactServer(t *testing.T) (*HTTPContactService, *[]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var requests []string
	r := gin.New()
	r.GET("/contacts/permission", func(c *gin.Context) {
		switch c.Query("peerId") {
		case "1":
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"permitido": true}})
		case "2":
			c.JSON(http.StatusOK, gin.H{"allowed": false})
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "blocked"})
		}
	})
	r.POST("/conversations", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"data": gin.H{
			"ConversacionId":   31,
			"TipoConversacion": "directa",
			"NombreMostrar":    "Ana",
			"OtroUsuarioId":    1,
		}})
	})
	r.POST("/contacts/requests", func(c *gin.Context) {
		var body map[string]int
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		requests = append(requests, c.GetHeader("Authorization"))
		c.Status(http.StatusAccepted)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, auth.StaticProvider{BearerToken: "tok"}, time.Second)
	return NewHTTPContactService(client), &requests
}

func TestHTTPContactServicePermission(t *testing.T) {
	svc, _ := newContactServer(t)
	ctx := context.Background()

	ok, err := svc.CheckPermission(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckPermission(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckPermission(ctx, 3)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestHTTPContactServiceCreateConversation(t *testing.T) {
	svc, _ := newContactServer(t)

	conv, err := svc.CreateConversation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 31, conv.ID)
	assert.Equal(t, models.DirectConversation, conv.Type)
	require.Len(t, conv.Participants, 1)
	assert.Equal(t, models.Participant{UserID: 1, UserName: "Ana"}, conv.Participants[0])
}

func TestHTTPContactServiceSendRequest(t *testing.T) {
	svc, requests := newContactServer(t)

	require.NoError(t, svc.SendContactRequest(context.Background(), 2))
	assert.Equal(t, []string{"Bearer tok"}, *requests)
}
