package app

import (
	"fmt"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
	"expensetracker/internal/storage"
)

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// CredentialBackends lists the valid CREDENTIAL_BACKEND values.
func CredentialBackends() []string {
	return []string{config.CredentialsMemory, config.CredentialsFile, config.CredentialsSQLite}
}

// newCredentialStore opens the configured credential persistence.
func newCredentialStore(cfg *config.Config, logger *log.Logger) (session.CredentialStore, CleanupFunc, error) {
	switch cfg.CredentialBackend {
	case config.CredentialsMemory:
		logger.Debug("Using in-memory credentials")
		return session.NewMemoryStore(), nil, nil

	case config.CredentialsFile:
		logger.Debug("Using credentials file", "path", cfg.CredentialsFile)
		return session.NewFileStore(cfg.CredentialsFile), nil, nil

	case config.CredentialsSQLite:
		repo, err := storage.NewCredentialRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite credentials: %w", err)
		}
		logger.Debug("Using SQLite credentials", "db_path", cfg.SQLiteDBPath)
		return repo, repo.Close, nil

	default:
		return nil, nil, fmt.Errorf("invalid credential backend: %s", cfg.CredentialBackend)
	}
}
