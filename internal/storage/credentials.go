// Package storage persists client-side state in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Fixed keys under which the session is stored.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// CredentialRepository keeps the bearer token and identity snapshot in the
// client_state key/value table.
type CredentialRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewCredentialRepository opens the database at dbPath, creating it and
// applying migrations as needed.
func NewCredentialRepository(dbPath string, logger *log.Logger) (*CredentialRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	version, err := Migrate(dbPath)
	if err != nil {
		return nil, fmt.Errorf("migrate credential store: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &CredentialRepository{
		db:     db,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStorage),
	}
	r.logger.Debug("Credential store ready", "db_path", dbPath, "schema_version", version)
	return r, nil
}

func (r *CredentialRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns core.ErrNoSession unless both keys are present.
func (r *CredentialRepository) Load(ctx context.Context) (core.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM client_state WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return core.Session{}, fmt.Errorf("query client state: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return core.Session{}, fmt.Errorf("scan client state: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return core.Session{}, fmt.Errorf("iterate client state: %w", err)
	}

	token, userJSON := values[KeyToken], values[KeyUser]
	if token == "" || userJSON == "" {
		return core.Session{}, core.ErrNoSession
	}

	var user core.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return core.Session{}, fmt.Errorf("decode stored user: %w", err)
	}
	return core.Session{User: user, Token: token}, nil
}

// Save writes both keys in one transaction.
func (r *CredentialRepository) Save(ctx context.Context, s core.Session) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	for _, kv := range [][2]string{{KeyToken, s.Token}, {KeyUser, string(userJSON)}} {
		if _, err := tx.ExecContext(ctx, upsert, kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Credentials saved", log.FieldUsername, s.User.Username)
	return nil
}

// Clear removes both keys. Clearing an empty store is not an error.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	r.logger.DebugContext(ctx, "Credentials cleared")
	return nil
}

// IsNoSession reports whether err means nothing was stored.
func IsNoSession(err error) bool {
	return errors.Is(err, core.ErrNoSession)
}
