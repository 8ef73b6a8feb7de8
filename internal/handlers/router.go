package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-session/internal/middleware"
	"chat-session/internal/observability"
)

// RouterConfig configures the debug router.
type RouterConfig struct {
	ServiceName string
	// Token guards the /session routes. Empty leaves them open.
	Token  string
	Logger *slog.Logger
}

// NewRouter builds the local debug server: health, metrics and session control.
func NewRouter(svc sessionService, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(RequestID())
	r.Use(observability.HTTPMetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewSessionHandler(svc, cfg.Logger)
	g := r.Group("/session", middleware.TokenAuth(cfg.Token, cfg.Logger))
	g.GET("", h.GetStatus)
	g.GET("/policy", h.GetPolicy)
	g.PUT("/company", h.BindCompany)
	g.POST("/conversations", h.StartConversation)
	g.POST("/conversations/:conversation_id/messages", h.PostMessage)
	return r
}
