package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-session/internal/observability"
)

// TokenAuth requires "Authorization: Bearer <token>" to match token. An empty
// token disables the check.
func TokenAuth(token string, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			deny(c, logger, "missing authorization")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			deny(c, logger, "invalid authorization header")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			deny(c, logger, "invalid token")
			return
		}
		c.Next()
	}
}

func deny(c *gin.Context, logger *slog.Logger, reason string) {
	logger.Warn("debug request denied", append(observability.RequestAttrs(c.Request), "reason", reason)...)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}
