package lifecycle

import (
	"context"
	"fmt"

	"github.com/siteproof/linkaudit/internal/remote"
	"github.com/siteproof/linkaudit/internal/settings"
)

// Status codes excluded from the broken-links report. 403 and 429 typically
// indicate bot-blocking rather than genuine breakage, so counting them as
// broken would flood the final report with false positives.
var excludedStatusCodes = []int{403, 429}

// EnsurePrimaryReport returns the external-links saved report, creating it
// if no ID is configured. The query groups external links by source page and
// is scoped to the primary audit's most recent scan.
func (m *Manager) EnsurePrimaryReport(ctx context.Context) (EnsureResult, error) {
	return m.ensureID(ctx, settings.KeyPrimaryReportID, "primary report", func(ctx context.Context) (string, error) {
		primaryAuditID, err := settings.Required(ctx, m.settings, settings.KeyPrimaryAuditID)
		if err != nil {
			return "", err
		}
		def := remote.SavedReport{
			Name:           "External links by source page",
			GridEntityType: remote.EntityLinks,
			Query: remote.QueryDefinition{
				Columns: []string{
					remote.ColSourceURL,
					remote.ColLinkURL,
					remote.ColAnchorText,
					remote.ColLinkHTML,
				},
				GroupBy: []string{
					remote.ColSourceURL,
					remote.ColLinkURL,
					remote.ColAnchorText,
					remote.ColLinkHTML,
				},
				Filters: []remote.Filter{
					{Field: "audit_id", Op: "eq", Value: primaryAuditID},
					{Field: "scan", Op: "eq", Value: "latest"},
					{Field: "external", Op: "eq", Value: true},
				},
			},
		}
		created, err := m.api.CreateSavedReport(ctx, def)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	})
}

// EnsureSecondaryAudit returns the URL-list audit used to verify extracted
// links, creating it if no ID is configured. The new audit clones the primary
// audit's domain and folder, carries its notification recipients forward,
// runs once on demand, and starts with an empty URL list; the pipeline
// replaces the list on every primary-stage completion.
func (m *Manager) EnsureSecondaryAudit(ctx context.Context) (EnsureResult, error) {
	return m.ensureID(ctx, settings.KeySecondaryAuditID, "secondary audit", func(ctx context.Context) (string, error) {
		primaryAuditID, err := settings.Required(ctx, m.settings, settings.KeyPrimaryAuditID)
		if err != nil {
			return "", err
		}
		primary, err := m.api.GetAudit(ctx, primaryAuditID)
		if err != nil {
			return "", fmt.Errorf("fetch primary audit: %w", err)
		}
		draft := remote.Audit{
			Name:         primary.Name + " - link verification",
			DomainID:     primary.DomainID,
			FolderID:     primary.FolderID,
			StartingURLs: []string{},
			Schedule:     &remote.Schedule{RunOnce: true},
			Recipients:   primary.Recipients,
		}
		created, err := m.api.CreateAudit(ctx, draft)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	})
}

// EnsureSecondaryReport returns the broken-links saved report, creating it if
// no ID is configured. The query selects pages from the secondary audit's
// most recent run with error-class status codes, excluding the bot-blocking
// codes.
func (m *Manager) EnsureSecondaryReport(ctx context.Context) (EnsureResult, error) {
	return m.ensureID(ctx, settings.KeyBrokenReportID, "broken-links report", func(ctx context.Context) (string, error) {
		secondaryAuditID, err := settings.Required(ctx, m.settings, settings.KeySecondaryAuditID)
		if err != nil {
			return "", err
		}
		filters := []remote.Filter{
			{Field: "audit_id", Op: "eq", Value: secondaryAuditID},
			{Field: "scan", Op: "eq", Value: "latest"},
			{Field: remote.ColStatusCode, Op: "gte", Value: 400},
		}
		for _, code := range excludedStatusCodes {
			filters = append(filters, remote.Filter{Field: remote.ColStatusCode, Op: "ne", Value: code})
		}
		def := remote.SavedReport{
			Name:           "Broken pages",
			GridEntityType: remote.EntityPages,
			Query: remote.QueryDefinition{
				Columns: []string{remote.ColURL, remote.ColFinalURL, remote.ColStatusCode},
				Filters: filters,
				OrderBy: []remote.Order{{Field: remote.ColStatusCode, Descending: true}},
			},
		}
		created, err := m.api.CreateSavedReport(ctx, def)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	})
}
