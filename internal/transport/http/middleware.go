package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/core"
)

const (
	// ContextKeyNick is the context key for storing the nickname.
	ContextKeyNick = "nick"
	// ContextKeyEmail is the context key for storing the e-mail.
	ContextKeyEmail = "email"
	// ContextKeySession is the context key for storing the session id.
	ContextKeySession = "session"

	sessionCookie = "user"
)

// Toucher refreshes the presence of an authenticated user.
type Toucher interface {
	OnLogin(nick string)
}

// AuthMiddleware validates the session token from the "user" cookie or a
// bearer header, and marks the user online for the duration of the request.
// Tokens of logged-out sessions are refused, so they cannot bring the user
// back online.
func AuthMiddleware(authService *auth.Service, presence Toucher, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			logger.Debug().Msg("missing session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing session token"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(ContextKeyNick, claims.Nick)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeySession, claims.ID)
		presence.OnLogin(claims.Nick)

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

func sessionToken(c *gin.Context) (string, bool) {
	if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1], parts[1] != ""
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

func userFromContext(c *gin.Context) (core.User, bool) {
	nick := c.GetString(ContextKeyNick)
	if nick == "" {
		return core.User{}, false
	}
	return core.User{Nick: nick, Email: c.GetString(ContextKeyEmail)}, true
}

func setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}
