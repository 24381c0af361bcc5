// Package settings is the key-value configuration surface shared with the
// operator: the remote API key, the provisioned remote resource IDs, and the
// webhook base URL. Setup writes it, every pipeline invocation reads it.
package settings

import (
	"context"
	"errors"
	"fmt"
)

// Setting keys. A key's absence is a hard configuration error at the point of
// use, never a retryable condition.
const (
	KeyAPIKey           = "api_key"
	KeyPrimaryAuditID   = "primary_audit_id"
	KeySecondaryAuditID = "secondary_audit_id"
	KeyPrimaryReportID  = "primary_report_id"
	KeyBrokenReportID   = "broken_report_id"
	KeyWebhookBaseURL   = "webhook_base_url"
)

// ErrNotSet reports an absent key.
var ErrNotSet = errors.New("setting not set")

// ConfigError is a missing required setting: fatal, user-visible, not retried.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("required setting %q is not configured", e.Key)
}

// Getter is the read side of the configuration surface.
type Getter interface {
	// Get returns the value for key, or ErrNotSet.
	Get(ctx context.Context, key string) (string, error)
}

// Store reads and writes operator configuration.
type Store interface {
	Getter
	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
}

// Required fetches a key, converting absence into a ConfigError.
func Required(ctx context.Context, s Getter, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotSet) {
		return "", &ConfigError{Key: key}
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	if v == "" {
		return "", &ConfigError{Key: key}
	}
	return v, nil
}
