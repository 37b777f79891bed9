// Package credstore keeps CLI credentials in a local SQLite database, one row
// per backend base URL.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/jonboulle/clockwork"

	_ "modernc.org/sqlite"
)

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens (creating if needed) the database at path and applies
// migrations. The parent directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials database: %w", err)
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// For returns the credential store for one backend.
func (s *Store) For(baseURL string) *Credentials {
	return &Credentials{store: s, baseURL: baseURL}
}

// Entry is a stored credential and the backend it belongs to.
type Entry struct {
	BaseURL    string
	Credential inventory.Credential
	UpdatedAt  time.Time
}

// List returns every stored credential ordered by base URL.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base_url, token, token_type, refresh_token, expires_at, updated_at
		FROM credentials
		ORDER BY base_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			expires, updatedAt int64
		)
		if err := rows.Scan(&e.BaseURL, &e.Credential.Token, &e.Credential.TokenType,
			&e.Credential.RefreshToken, &expires, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		e.Credential.ExpiresAt = fromMillis(expires)
		e.UpdatedAt = fromMillis(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Credentials implements inventory.CredentialStore for a single base URL.
type Credentials struct {
	store   *Store
	baseURL string
}

var _ inventory.CredentialStore = (*Credentials)(nil)

func (c *Credentials) Load(ctx context.Context) (*inventory.Credential, error) {
	var (
		cred    inventory.Credential
		expires int64
	)
	err := c.store.db.QueryRowContext(ctx, `
		SELECT token, token_type, refresh_token, expires_at
		FROM credentials
		WHERE base_url = ?`, c.baseURL,
	).Scan(&cred.Token, &cred.TokenType, &cred.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	cred.ExpiresAt = fromMillis(expires)
	return &cred, nil
}

func (c *Credentials) Save(ctx context.Context, cred inventory.Credential) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO credentials (base_url, token, token_type, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (base_url) DO UPDATE SET
			token = excluded.token,
			token_type = excluded.token_type,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		c.baseURL, cred.Token, cred.TokenType, cred.RefreshToken,
		toMillis(cred.ExpiresAt), c.store.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (c *Credentials) Clear(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, `DELETE FROM credentials WHERE base_url = ?`, c.baseURL); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
