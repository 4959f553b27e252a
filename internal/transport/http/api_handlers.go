package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/proto"
)

// APIHandlers provides the login and logout endpoints.
type APIHandlers struct {
	authService *auth.Service
	sessionTTL  time.Duration
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, sessionTTL time.Duration, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		sessionTTL:  sessionTTL,
		log:         logger,
	}
}

// AuthResponse represents the login response body.
type AuthResponse struct {
	Token string `json:"token"`
	Nick  string `json:"nick"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Login puts a nickname online and issues a session.
// POST /auth/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req proto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, profile, err := h.authService.Login(c.Request.Context(), req.Nick, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidNick):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "nickname is required"})
		case errors.Is(err, auth.ErrNickInUse):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "nickname already in use"})
		default:
			h.log.Error().Err(err).Str("nick", req.Nick).Msg("failed to login user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	setSessionCookie(c, token, int(h.sessionTTL.Seconds()))
	h.log.Info().Str("nick", profile.Nick).Int64("logins", profile.Logins).Msg("user logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token, Nick: profile.Nick})
}

// Logout takes the session's nickname offline and clears the cookie.
// A missing or invalid session is not an error.
// POST|GET /auth/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	if token, ok := sessionToken(c); ok {
		if claims, err := h.authService.ValidateToken(token); err == nil {
			h.authService.Logout(c.Request.Context(), claims.Nick, claims.ID)
			h.log.Info().Str("nick", claims.Nick).Msg("user logged out")
		}
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": proto.StatusOK})
}
