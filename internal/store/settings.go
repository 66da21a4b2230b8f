package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetMasterSecret retrieves the master secret from the database. If no
// secret exists, it generates one, stores it, and returns it. All cookie and
// sealing keys are derived from this value, so it survives restarts.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetMasterSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating master secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('master_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing master_secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'master_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying master_secret: %w", err)
	}

	return secret, nil
}
