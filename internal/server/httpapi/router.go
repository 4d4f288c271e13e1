// Package httpapi exposes the controller over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	Controller *controller.Controller
	Sessions   *session.Manager
	SecretKey  []byte
	DB         Pinger
	Metrics    http.Handler
	Logger     logging.Logger
}

// SetupRouter builds the gin engine.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	l := cfg.Logger.With("module", "http")

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(l))

	router.GET("/health", health(cfg.DB))
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	h := NewHandlers(cfg.Controller, l)

	api := router.Group("/")
	api.Use(AuthMiddleware(cfg.SecretKey, cfg.Sessions))
	{
		api.GET(controller.PathInbox, h.Inbox)
		api.GET("/message/read/:hash", h.Read)
		api.POST("/message/delete/:hash", h.Delete)
		api.GET(controller.PathDeleted, h.Deleted)
		api.GET(controller.PathSend, h.Compose)
		api.GET(controller.PathSend+"/:identifier", h.Compose)
		api.POST(controller.PathSend, h.Send)
		api.POST(controller.PathSend+"/:identifier", h.Send)
		api.GET(controller.PathPin, h.PinPrompt)
		api.POST(controller.PathPin, h.EnterPin)
		api.GET(controller.PathChangePin, h.ChangePinForm)
		api.POST(controller.PathChangePin, h.ChangePin)
		api.POST(controller.PathLogout, h.Logout)
	}

	return router
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
