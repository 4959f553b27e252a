package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/config"
	"github.com/vovakirdan/pollchat/internal/core"
)

// NewServer builds the HTTP server for the chat.
func NewServer(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, authService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a fresh gin engine.
func NewRouter(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, cfg.JWTTTL, logger)
	router.POST("/auth/login", api.Login)
	router.POST("/auth/logout", api.Logout)
	router.GET("/auth/logout", api.Logout)

	chat := NewChatHandlers(hub, authService, logger)
	stream := NewStreamHandler(hub, authService, cfg.WSRateLimit, logger)
	profiles := NewProfileHandlers(authService, hub, logger)

	authed := router.Group("/a", AuthMiddleware(authService, hub, logger))
	authed.POST("/message/new", chat.NewMessage)
	authed.POST("/message/updates", chat.Updates)
	authed.GET("/message/stream", stream.Serve)
	authed.GET("/messages", chat.History)
	authed.GET("/online", chat.Online)
	authed.GET("/profiles", profiles.List)
	authed.GET("/profiles/:nick", profiles.Get)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
