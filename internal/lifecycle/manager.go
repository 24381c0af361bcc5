// Package lifecycle provisions and mutates the remote resources the pipeline
// depends on: the primary saved report, the secondary audit, the broken-links
// report, and the webhook subscriptions tying them all back to this service.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/remote"
	"github.com/siteproof/linkaudit/internal/settings"
)

// RemoteAPI is the slice of the remote client the manager uses.
type RemoteAPI interface {
	GetSavedReport(ctx context.Context, reportID string) (remote.SavedReport, error)
	CreateSavedReport(ctx context.Context, def remote.SavedReport) (remote.SavedReport, error)
	GetAudit(ctx context.Context, auditID string) (remote.Audit, error)
	CreateAudit(ctx context.Context, audit remote.Audit) (remote.Audit, error)
	SaveAudit(ctx context.Context, audit remote.Audit) error
	RunAudit(ctx context.Context, auditID string) (string, error)
}

// RunTriggerError reports the partial-failure mode of the save-then-run
// protocol: the audit's URLs were saved but the run call failed, leaving
// updated URLs with no triggered run. Retrying the trigger is safe.
type RunTriggerError struct {
	AuditID string
	Err     error
}

func (e *RunTriggerError) Error() string {
	return fmt.Sprintf("audit %s saved but run trigger failed: %v", e.AuditID, e.Err)
}

func (e *RunTriggerError) Unwrap() error { return e.Err }

// EnsureResult reports a create-or-get outcome.
type EnsureResult struct {
	ID      string
	Created bool
}

// Manager performs the idempotent create-or-get operations and the runtime
// audit mutations. Once an ID is persisted in settings, subsequent ensure
// calls short-circuit to it and never re-create the resource.
type Manager struct {
	api      RemoteAPI
	settings settings.Store
	log      *execlog.Log
	logger   *zap.Logger
}

// NewManager builds a Manager.
func NewManager(api RemoteAPI, st settings.Store, log *execlog.Log, logger *zap.Logger) *Manager {
	if log == nil {
		log = execlog.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, settings: st, log: log, logger: logger}
}

// ensureID runs the shared create-or-get skeleton: return the configured ID
// if present, otherwise create the resource and persist its ID.
func (m *Manager) ensureID(ctx context.Context, key, what string, create func(ctx context.Context) (string, error)) (EnsureResult, error) {
	existing, err := m.settings.Get(ctx, key)
	if err == nil && existing != "" {
		m.logger.Debug("resource already provisioned",
			zap.String("resource", what), zap.String("id", existing))
		return EnsureResult{ID: existing}, nil
	}

	id, err := create(ctx)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("create %s: %w", what, err)
	}
	if err := m.settings.Set(ctx, key, id); err != nil {
		return EnsureResult{}, fmt.Errorf("persist %s id: %w", what, err)
	}
	m.log.Info(execlog.ActionProvision, fmt.Sprintf("created %s %s", what, id))
	return EnsureResult{ID: id, Created: true}, nil
}
