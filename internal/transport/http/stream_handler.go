package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/proto"
)

// replayAll matches no message id, so subscribing with it replays the whole
// history when there is any.
const replayAll = "*"

var errLoggedOut = errors.New("logged out")

// StreamHandler pushes message batches over a WebSocket instead of
// repeated long-polls.
type StreamHandler struct {
	hub       *core.Hub
	sessions  Sessions
	rateLimit int
	log       *zerolog.Logger
}

// NewStreamHandler builds a new WebSocket stream handler.
func NewStreamHandler(hub *core.Hub, sessions Sessions, rateLimit int, logger *zerolog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, sessions: sessions, rateLimit: rateLimit, log: logger}
}

// Serve upgrades the request and streams messages until either side closes.
// GET /a/message/stream
func (h *StreamHandler) Serve(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	cursors := make(chan string, 1)
	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, user, c.GetString(ContextKeySession), cursors)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, user.Nick, cursors)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status, reason := closeStatus(err)
	if status != websocket.StatusNormalClosure {
		h.log.Warn().Err(err).Str("nick", user.Nick).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

func (h *StreamHandler) readLoop(ctx context.Context, conn *websocket.Conn, user core.User, sessionID string, cursors chan<- string) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeSay:
			if !limiter.allow() {
				if err := writeError(ctx, conn, proto.ErrCodeRateLimited, "rate limit exceeded"); err != nil {
					return err
				}
				continue
			}
			result := h.hub.SubmitCommand(user, inbound.Body)
			if result.Logout {
				h.sessions.Logout(ctx, user.Nick, sessionID)
				return errLoggedOut
			}
			// Broadcasts reach this client through the stream.
			if result.Message != nil && !result.Broadcast {
				reply := messageToProto(result.Message)
				if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeReply, Reply: &reply}); err != nil {
					return err
				}
			}

		case proto.InboundTypeCursor:
			select {
			case cursors <- inbound.Cursor:
			case <-ctx.Done():
				return ctx.Err()
			}

		default:
			if err := writeError(ctx, conn, proto.ErrCodeBadRequest, "unknown frame type"); err != nil {
				return err
			}
		}
	}
}

func (h *StreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, nick string, cursors <-chan string) error {
	keepAlive := time.NewTicker(h.hub.PollInterval())
	defer keepAlive.Stop()

	cursor := replayAll
	for {
		backlog, w := h.hub.Subscribe(nick, cursor)
		if w == nil {
			next, err := h.push(ctx, conn, nick, backlog)
			if err != nil {
				return err
			}
			cursor = next
			continue
		}

	wait:
		for {
			select {
			case messages, ok := <-w.C():
				if !ok {
					break wait
				}
				next, err := h.push(ctx, conn, nick, messages)
				if err != nil {
					return err
				}
				cursor = next
				break wait

			case next := <-cursors:
				h.hub.OnConnectionClosed(w)
				cursor = next
				break wait

			case <-keepAlive.C:
				h.hub.OnLogin(nick)

			case <-ctx.Done():
				h.hub.OnConnectionClosed(w)
				return ctx.Err()
			}
		}
	}
}

// push writes one batch and returns the cursor after it.
func (h *StreamHandler) push(ctx context.Context, conn *websocket.Conn, nick string, messages []core.Message) (string, error) {
	frame := proto.Outbound{Type: proto.OutboundTypeMessages, Messages: messagesToProto(messages)}
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return "", err
	}
	h.hub.Refresh(nick)
	return messages[len(messages)-1].ID, nil
}

func writeError(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
}

func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		return websocket.StatusNormalClosure, "closing"
	case errors.Is(err, errLoggedOut):
		return websocket.StatusNormalClosure, errLoggedOut.Error()
	}
	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return websocket.StatusNormalClosure, "closing"
	}
	return websocket.StatusInternalError, err.Error()
}
