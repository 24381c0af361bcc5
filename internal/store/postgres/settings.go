package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/siteproof/linkaudit/internal/settings"
)

// SettingsStore implements settings.Store on the audit_settings table.
type SettingsStore struct {
	db DB
}

// NewSettingsStore wraps a connection pool (or a pgxmock in tests).
func NewSettingsStore(db DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get implements settings.Store.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM audit_settings WHERE key = $1;`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", settings.ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set implements settings.Store.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO audit_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;
	`
	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
