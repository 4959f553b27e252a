package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/pollchat/internal/store"
)

// Schema is the profile table layout applied by New.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	nick         TEXT PRIMARY KEY,
	email        TEXT NOT NULL DEFAULT '',
	logins       INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_profiles_last_seen ON profiles(last_seen_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup before first use.
// Useful for tests that want a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertProfile creates the profile or counts another login for it.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, nick, email string) (*store.Profile, error) {
	query := `
		INSERT INTO profiles (nick, email, logins, created_at, last_seen_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(nick) DO UPDATE SET
			email        = CASE WHEN excluded.email <> '' THEN excluded.email ELSE profiles.email END,
			logins       = profiles.logins + 1,
			last_seen_at = excluded.last_seen_at
	`
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, query, nick, email, now, now); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, nick)
}

// GetProfile retrieves a profile by nickname.
func (s *SQLiteStore) GetProfile(ctx context.Context, nick string) (*store.Profile, error) {
	query := `
		SELECT nick, email, logins, created_at, last_seen_at
		FROM profiles
		WHERE nick = ?
	`
	var p store.Profile
	err := s.db.QueryRowContext(ctx, query, nick).Scan(
		&p.Nick,
		&p.Email,
		&p.Logins,
		&p.CreatedAt,
		&p.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %q: %w", nick, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// TouchProfile updates the last-seen time of nick.
func (s *SQLiteStore) TouchProfile(ctx context.Context, nick string, seenAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE profiles SET last_seen_at = ? WHERE nick = ?`, seenAt.UTC(), nick)
	if err != nil {
		return fmt.Errorf("touch profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile %q: %w", nick, store.ErrNotFound)
	}
	return nil
}

// ListProfiles returns up to limit profiles, most recently seen first.
func (s *SQLiteStore) ListProfiles(ctx context.Context, limit int) ([]store.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT nick, email, logins, created_at, last_seen_at
		FROM profiles
		ORDER BY last_seen_at DESC, nick ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []store.Profile
	for rows.Next() {
		var p store.Profile
		if err := rows.Scan(&p.Nick, &p.Email, &p.Logins, &p.CreatedAt, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}
