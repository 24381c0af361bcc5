package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/remote"
	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/settings"
	"github.com/siteproof/linkaudit/internal/store"
	"github.com/siteproof/linkaudit/internal/telemetry"
)

// ErrPrimaryReportEmpty marks a primary crawl that produced no link rows
// after the full retry budget. The workflow cannot continue without source
// links, so the primary stage treats this as fatal.
var ErrPrimaryReportEmpty = errors.New("primary report returned no rows after retries")

// runPrimary handles a primary-crawl completion: it snapshots the external
// link rows, derives the unique target URL set, and retargets and launches
// the secondary verification audit.
func (r *Router) runPrimary(ctx context.Context) error {
	reportID, err := settings.Required(ctx, r.settings, settings.KeyPrimaryReportID)
	if err != nil {
		return err
	}

	links, err := r.fetcher.FetchReportWithRetry(ctx, reportID)
	if err != nil {
		return fmt.Errorf("fetching primary report %s: %w", reportID, err)
	}
	if links.Empty() {
		return ErrPrimaryReportEmpty
	}
	r.log.Info(execlog.ActionFetch, fmt.Sprintf("primary report returned %d link rows", len(links.Rows)))

	if err := r.reports.Save(ctx, store.TablePrimaryLinks, links); err != nil {
		return fmt.Errorf("persisting %s: %w", store.TablePrimaryLinks, err)
	}
	telemetry.SetReportRows(store.TablePrimaryLinks, len(links.Rows))

	urls, err := report.UniqueColumnValues(links, remote.ColLinkURL)
	if err != nil {
		return fmt.Errorf("extracting link targets: %w", err)
	}
	unique := report.Table{Headers: []string{remote.ColLinkURL}}
	for _, u := range urls {
		unique.Rows = append(unique.Rows, []string{u})
	}
	if err := r.reports.Save(ctx, store.TableUniqueURLs, unique); err != nil {
		return fmt.Errorf("persisting %s: %w", store.TableUniqueURLs, err)
	}
	telemetry.SetReportRows(store.TableUniqueURLs, len(unique.Rows))
	r.log.Info(execlog.ActionPersist, fmt.Sprintf("stored %d unique target URLs", len(urls)))

	runID, err := r.trigger.UpdateAndTriggerSecondaryAudit(ctx, urls)
	if err != nil {
		return err
	}
	r.log.Info(execlog.ActionTrigger, fmt.Sprintf("secondary audit run %s started against %d URLs", runID, len(urls)))
	return nil
}
