package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Profile is what the server remembers about a nickname between sessions.
// Chat messages themselves are never persisted.
type Profile struct {
	Nick       string
	Email      string
	Logins     int64
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ProfileStore defines profile persistence operations.
type ProfileStore interface {
	// UpsertProfile records a login for nick. An empty email keeps the stored one.
	UpsertProfile(ctx context.Context, nick, email string) (*Profile, error)
	// GetProfile retrieves a profile by nickname.
	GetProfile(ctx context.Context, nick string) (*Profile, error)
	// TouchProfile updates the last-seen time of nick.
	TouchProfile(ctx context.Context, nick string, seenAt time.Time) error
	// ListProfiles returns profiles ordered by most recently seen.
	ListProfiles(ctx context.Context, limit int) ([]Profile, error)
}

// Store combines all persistence interfaces.
type Store interface {
	ProfileStore
	Close() error
}
