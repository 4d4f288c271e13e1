package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/auth"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/gin-gonic/gin"
)

const sessionCtxKey = "session"

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v, err := c.Cookie(common.SessionCookieName); err == nil {
		return v
	}
	return ""
}

// AuthMiddleware validates the session token from the Authorization header
// or the session cookie and opens the Session for the handlers.
func AuthMiddleware(secretKey []byte, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing session token"})
			return
		}

		claims, err := auth.ParseToken(token, secretKey)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		ended, err := sessions.Ended(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if ended {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session ended"})
			return
		}

		c.Set(sessionCtxKey, sessions.Open(claims.SessionID, claims.UserID))
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionCtxKey).(*session.Session)
}

// RequestLogger logs one line per request. Paths are logged without the
// query string.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if v, ok := c.Get(sessionCtxKey); ok {
			args = append(args, "user_id", v.(*session.Session).UserID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			l.Error(c.Request.Context(), "request", args...)
			return
		}
		l.Info(c.Request.Context(), "request", args...)
	}
}
