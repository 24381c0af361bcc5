package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/settings"
)

// UpdateAndTriggerSecondaryAudit replaces the secondary audit's starting URLs
// with the given list and triggers a run. The URL list is a full replacement,
// never an append: appending would grow the audit without bound across runs.
// Save and run are two sequential remote calls with no rollback; a run
// failure after a successful save surfaces as *RunTriggerError.
func (m *Manager) UpdateAndTriggerSecondaryAudit(ctx context.Context, urls []string) (string, error) {
	auditID, err := settings.Required(ctx, m.settings, settings.KeySecondaryAuditID)
	if err != nil {
		return "", err
	}

	audit, err := m.api.GetAudit(ctx, auditID)
	if err != nil {
		return "", fmt.Errorf("fetch secondary audit: %w", err)
	}

	audit.StartingURLs = urls
	audit.Limit = len(urls)
	if err := m.api.SaveAudit(ctx, audit); err != nil {
		return "", fmt.Errorf("save secondary audit: %w", err)
	}
	m.logger.Info("secondary audit URLs replaced",
		zap.String("audit_id", auditID),
		zap.Int("url_count", len(urls)),
	)

	runID, err := m.api.RunAudit(ctx, auditID)
	if err != nil {
		m.log.Error(execlog.ActionTrigger,
			fmt.Sprintf("audit %s: URLs saved but run trigger failed: %v", auditID, err))
		return "", &RunTriggerError{AuditID: auditID, Err: err}
	}
	m.log.Info(execlog.ActionTrigger,
		fmt.Sprintf("audit %s run %s triggered with %d URLs", auditID, runID, len(urls)))
	return runID, nil
}
