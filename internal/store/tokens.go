package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/lostfound/internal/auth"
)

// PutSessionToken stores a sealed API token for a browser session, replacing
// any previous token and extending the expiry.
func PutSessionToken(ctx context.Context, db *sql.DB, sessionID string, sealed []byte, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token,
		     expires_at = excluded.expires_at, updated_at = CURRENT_TIMESTAMP`,
		sessionID, sealed, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	return nil
}

// GetSessionToken returns the sealed token of a browser session, or nil if
// the session has none or it has expired.
func GetSessionToken(ctx context.Context, db *sql.DB, sessionID string) ([]byte, error) {
	var sealed []byte
	err := db.QueryRowContext(ctx,
		`SELECT token FROM sessions WHERE id = ? AND expires_at > ?`,
		sessionID, time.Now().UTC(),
	).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session token: %w", err)
	}
	return sealed, nil
}

// DeleteSessionToken removes a browser session's token. Deleting a missing
// session is not an error.
func DeleteSessionToken(ctx context.Context, db *sql.DB, sessionID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session token: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired session rows and returns how many were removed.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sessions: %w", err)
	}
	return n, nil
}

// SQLiteTokens keeps API tokens in the sessions table, sealed at rest.
type SQLiteTokens struct {
	DB     *sql.DB
	Sealer *auth.Sealer
	TTL    time.Duration
}

// Get returns the API token for a browser session, or "" if there is none.
// A token that no longer opens under the current key counts as absent.
func (s *SQLiteTokens) Get(ctx context.Context, sessionID string) (string, error) {
	sealed, err := GetSessionToken(ctx, s.DB, sessionID)
	if err != nil || sealed == nil {
		return "", err
	}
	plain, err := s.Sealer.Open(sealed)
	if err != nil {
		return "", nil
	}
	return string(plain), nil
}

// Put seals and stores the API token for a browser session.
func (s *SQLiteTokens) Put(ctx context.Context, sessionID, token string) error {
	sealed, err := s.Sealer.Seal([]byte(token))
	if err != nil {
		return err
	}
	return PutSessionToken(ctx, s.DB, sessionID, sealed, time.Now().Add(s.TTL))
}

// Delete removes the API token for a browser session.
func (s *SQLiteTokens) Delete(ctx context.Context, sessionID string) error {
	return DeleteSessionToken(ctx, s.DB, sessionID)
}

// Ping checks the database connection.
func (s *SQLiteTokens) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
