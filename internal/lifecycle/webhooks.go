package lifecycle

import (
	"context"
	"fmt"
	"net/url"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/settings"
)

// Stage discriminator values appended to the webhook URL.
const (
	StageParamPrimary   = "primary"
	StageParamSecondary = "secondary"
)

// WebhookURL appends the stage discriminator to the base webhook URL.
func WebhookURL(base, stage string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse webhook base URL: %w", err)
	}
	q := u.Query()
	q.Set("stage", stage)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConfigureWebhookSubscriptions points both audits' completion webhooks at
// this service, discriminated by the stage query parameter, and persists the
// change on each audit object.
func (m *Manager) ConfigureWebhookSubscriptions(ctx context.Context) error {
	base, err := settings.Required(ctx, m.settings, settings.KeyWebhookBaseURL)
	if err != nil {
		return err
	}
	primaryID, err := settings.Required(ctx, m.settings, settings.KeyPrimaryAuditID)
	if err != nil {
		return err
	}
	secondaryID, err := settings.Required(ctx, m.settings, settings.KeySecondaryAuditID)
	if err != nil {
		return err
	}

	subscriptions := []struct {
		auditID string
		stage   string
	}{
		{auditID: primaryID, stage: StageParamPrimary},
		{auditID: secondaryID, stage: StageParamSecondary},
	}
	for _, sub := range subscriptions {
		hook, err := WebhookURL(base, sub.stage)
		if err != nil {
			return err
		}
		audit, err := m.api.GetAudit(ctx, sub.auditID)
		if err != nil {
			return fmt.Errorf("fetch audit %s: %w", sub.auditID, err)
		}
		audit.Options.WebhookURL = hook
		if err := m.api.SaveAudit(ctx, audit); err != nil {
			return fmt.Errorf("save audit %s webhook: %w", sub.auditID, err)
		}
		m.log.Info(execlog.ActionProvision,
			fmt.Sprintf("audit %s webhook set to stage=%s", sub.auditID, sub.stage))
	}
	return nil
}
