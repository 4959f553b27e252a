package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/proto"
)

// Sessions ends the login session of a user who sent "/logout".
type Sessions interface {
	Logout(ctx context.Context, nick, sessionID string)
}

// ChatHandlers serves the long-poll chat endpoints.
type ChatHandlers struct {
	hub      *core.Hub
	sessions Sessions
	log      *zerolog.Logger
}

// NewChatHandlers creates chat handlers bound to hub.
func NewChatHandlers(hub *core.Hub, sessions Sessions, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{hub: hub, sessions: sessions, log: logger}
}

// NewMessage posts a chat line or runs a command.
// POST /a/message/new
func (h *ChatHandlers) NewMessage(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.NewMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result := h.hub.SubmitCommand(user, req.Body)
	if result.Logout {
		h.sessions.Logout(c.Request.Context(), user.Nick, c.GetString(ContextKeySession))
		clearSessionCookie(c)
		c.Status(http.StatusNoContent)
		return
	}
	if result.Message == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, messageToProto(result.Message))
}

// Updates long-polls for messages after the client's cursor.
// POST /a/message/updates
func (h *ChatHandlers) Updates(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.UpdatesRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	result, err := h.hub.PollForMessages(ctx, user.Nick, req.Cursor, 0)
	status, body, ok := pollResponse(ctx, result, err)
	switch {
	case !ok:
		h.log.Debug().Err(err).Str("nick", user.Nick).Msg("poll abandoned")
		c.Abort()
	case status == http.StatusInternalServerError:
		h.log.Error().Err(err).Str("nick", user.Nick).Msg("poll failed")
		c.JSON(status, body)
	default:
		c.JSON(status, body)
	}
}

// pollResponse maps a finished poll to its HTTP answer. ok is false when the
// client is gone and there is nobody to answer.
func pollResponse(ctx context.Context, result core.PollResult, err error) (int, any, bool) {
	switch {
	case err == nil:
		return http.StatusOK, updatesFromResult(result), true
	case errors.Is(err, core.ErrPollCancelled):
		return http.StatusOK, proto.UpdatesResponse{Status: proto.StatusTryAgain}, true
	case ctx.Err() != nil:
		return 0, nil, false
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}, true
	}
}

// History returns the retained messages, oldest first.
// GET /a/messages
func (h *ChatHandlers) History(c *gin.Context) {
	c.JSON(http.StatusOK, proto.UpdatesResponse{
		Status:   proto.StatusOK,
		Messages: messagesToProto(h.hub.History()),
	})
}

// Online lists who is online.
// GET /a/online
func (h *ChatHandlers) Online(c *gin.Context) {
	users := h.hub.ListOnline()
	c.JSON(http.StatusOK, proto.OnlineResponse{Count: len(users), Users: users})
}
