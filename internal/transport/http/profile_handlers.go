package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/proto"
	"github.com/vovakirdan/pollchat/internal/store"
)

const (
	defaultProfileLimit = 50
	maxProfileLimit     = 200
)

// ProfileHandlers serves the directory of remembered nicknames.
type ProfileHandlers struct {
	authService *auth.Service
	hub         *core.Hub
	log         *zerolog.Logger
}

// NewProfileHandlers creates profile handlers.
func NewProfileHandlers(authService *auth.Service, hub *core.Hub, logger *zerolog.Logger) *ProfileHandlers {
	return &ProfileHandlers{authService: authService, hub: hub, log: logger}
}

// List returns recently seen profiles.
// GET /a/profiles?limit=N
func (h *ProfileHandlers) List(c *gin.Context) {
	limit := defaultProfileLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxProfileLimit)
	}

	profiles, err := h.authService.RecentProfiles(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list profiles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]proto.Profile, 0, len(profiles))
	for i := range profiles {
		out = append(out, h.profileToProto(&profiles[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single profile.
// GET /a/profiles/:nick
func (h *ProfileHandlers) Get(c *gin.Context) {
	profile, err := h.authService.Profile(c.Request.Context(), c.Param("nick"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "profile not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to get profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, h.profileToProto(profile))
}

func (h *ProfileHandlers) profileToProto(p *store.Profile) proto.Profile {
	return proto.Profile{
		Nick:       p.Nick,
		Avatar:     core.AvatarURL(p.Email),
		Online:     h.hub.IsOnline(p.Nick),
		Logins:     p.Logins,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
		LastSeenAt: p.LastSeenAt.UTC().Format(time.RFC3339),
	}
}
