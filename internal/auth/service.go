package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/store"
)

const maxNickLen = 32

var (
	// ErrInvalidNick is returned when a nickname doesn't meet constraints.
	ErrInvalidNick = errors.New("invalid nickname")
	// ErrNickInUse is returned when the nickname is already online.
	ErrNickInUse = errors.New("nickname already in use")
	// ErrSessionEnded is returned for a token whose session was logged out.
	ErrSessionEnded = fmt.Errorf("%w: session ended", ErrInvalidToken)
)

// Presence is the part of the chat core the login flow needs.
type Presence interface {
	IsOnline(nick string) bool
	OnLogin(nick string)
	OnLogout(nick string)
}

// Service provides login and session operations.
type Service struct {
	mu        sync.Mutex
	profiles  store.ProfileStore
	presence  Presence
	jwtConfig *JWTConfig
	log       *zerolog.Logger

	// ended maps logged-out session ids to the time their tokens expire.
	endedMu sync.Mutex
	ended   map[string]time.Time
	now     func() time.Time
}

// NewService creates a new authentication service.
func NewService(profiles store.ProfileStore, presence Presence, jwtConfig *JWTConfig, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		profiles:  profiles,
		presence:  presence,
		jwtConfig: jwtConfig,
		log:       logger,
		ended:     make(map[string]time.Time),
		now:       time.Now,
	}
}

// Login puts nick online and returns a session token.
// A nickname that is already online is rejected with ErrNickInUse.
func (s *Service) Login(ctx context.Context, nick, email string) (string, *store.Profile, error) {
	nick = strings.TrimSpace(nick)
	email = strings.TrimSpace(email)
	if err := validateNick(nick); err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presence.IsOnline(nick) {
		return "", nil, ErrNickInUse
	}

	profile, err := s.profiles.UpsertProfile(ctx, nick, email)
	if err != nil {
		return "", nil, fmt.Errorf("record profile: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, profile.Nick, profile.Email)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	s.presence.OnLogin(nick)
	return token, profile, nil
}

// Logout takes nick offline and ends the session sessionID, so its token is
// refused from now on. It is safe to call for a nick that is not online, and
// with an empty sessionID when the session is unknown.
func (s *Service) Logout(ctx context.Context, nick, sessionID string) {
	s.presence.OnLogout(nick)
	s.endSession(sessionID)
	if err := s.profiles.TouchProfile(ctx, nick, s.now()); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Err(err).Str("nick", nick).Msg("failed to update last seen")
	}
}

// Profile returns what is remembered about nick.
func (s *Service) Profile(ctx context.Context, nick string) (*store.Profile, error) {
	return s.profiles.GetProfile(ctx, nick)
}

// RecentProfiles returns up to limit profiles, most recently seen first.
func (s *Service) RecentProfiles(ctx context.Context, limit int) ([]store.Profile, error) {
	return s.profiles.ListProfiles(ctx, limit)
}

// ValidateToken validates a session token and returns the claims. Tokens of
// logged-out sessions fail with ErrSessionEnded.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, err
	}

	s.endedMu.Lock()
	_, ended := s.ended[claims.ID]
	s.endedMu.Unlock()
	if ended {
		return nil, ErrSessionEnded
	}
	return claims, nil
}

// endSession remembers sessionID until every token it could have carried has
// expired, and forgets sessions that are past that point.
func (s *Service) endSession(sessionID string) {
	if sessionID == "" {
		return
	}
	now := s.now()

	s.endedMu.Lock()
	defer s.endedMu.Unlock()
	for id, expiry := range s.ended {
		if now.After(expiry) {
			delete(s.ended, id)
		}
	}
	s.ended[sessionID] = now.Add(s.jwtConfig.TTL)
}

func validateNick(nick string) error {
	if nick == "" || len(nick) > maxNickLen {
		return ErrInvalidNick
	}
	if strings.HasPrefix(nick, "/") || strings.IndexFunc(nick, unicode.IsSpace) >= 0 {
		return ErrInvalidNick
	}
	return nil
}
