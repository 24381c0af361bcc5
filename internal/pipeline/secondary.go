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

// finalReportJoin maps broken target URLs back onto the source pages that
// link to them. The right side drives: every broken row appears in the
// output, joined against every primary row that references its URL.
var finalReportJoin = report.JoinSpec{
	LeftKey:  remote.ColLinkURL,
	RightKey: remote.ColURL,
	Output: []report.OutputColumn{
		{Side: report.LeftSide, Column: remote.ColSourceURL},
		{Side: report.LeftSide, Column: remote.ColLinkURL},
		{Side: report.LeftSide, Column: remote.ColAnchorText},
		{Side: report.LeftSide, Column: remote.ColLinkHTML},
		{Side: report.RightSide, Column: remote.ColFinalURL},
		{Side: report.RightSide, Column: remote.ColStatusCode},
	},
}

// runSecondary handles a secondary-crawl completion: it fetches the broken
// page rows and joins them back to the primary link snapshot to produce the
// final report. An empty broken report is the success case.
func (r *Router) runSecondary(ctx context.Context) error {
	reportID, err := settings.Required(ctx, r.settings, settings.KeyBrokenReportID)
	if err != nil {
		return err
	}

	broken, err := r.fetcher.FetchReportWithRetry(ctx, reportID)
	if err != nil {
		return fmt.Errorf("fetching broken-pages report %s: %w", reportID, err)
	}
	if broken.Empty() {
		// A clean audit still runs the persistence path below so the broken
		// and final tables from a previous run are overwritten, not left
		// behind as stale breakage.
		r.log.Info(execlog.ActionFetch, "no broken links found, audit is clean")
		if len(broken.Headers) == 0 {
			broken.Headers = []string{remote.ColURL, remote.ColFinalURL, remote.ColStatusCode}
		}
	} else {
		r.log.Info(execlog.ActionFetch, fmt.Sprintf("broken-pages report returned %d rows", len(broken.Rows)))
	}

	if err := r.reports.Save(ctx, store.TableBrokenLinks, broken); err != nil {
		return fmt.Errorf("persisting %s: %w", store.TableBrokenLinks, err)
	}
	telemetry.SetReportRows(store.TableBrokenLinks, len(broken.Rows))

	primary, err := r.reports.Load(ctx, store.TablePrimaryLinks)
	if errors.Is(err, store.ErrNotFound) {
		// No snapshot means no source pages to attribute; the join then
		// drops every broken row and the final report comes out empty.
		primary = report.Table{Headers: []string{
			remote.ColSourceURL, remote.ColLinkURL, remote.ColAnchorText, remote.ColLinkHTML,
		}}
		r.log.Warn(execlog.ActionJoin, "primary link snapshot not found, joining against empty table")
	} else if err != nil {
		return fmt.Errorf("loading %s: %w", store.TablePrimaryLinks, err)
	}

	spec := finalReportJoin
	spec.Policy = r.policy
	final, err := report.Join(primary, broken, spec)
	if err != nil {
		return fmt.Errorf("joining broken pages to source links: %w", err)
	}
	r.log.Info(execlog.ActionJoin, fmt.Sprintf("final report has %d rows", len(final.Rows)))

	if err := r.reports.Save(ctx, store.TableFinalReport, final); err != nil {
		return fmt.Errorf("persisting %s: %w", store.TableFinalReport, err)
	}
	telemetry.SetReportRows(store.TableFinalReport, len(final.Rows))
	return nil
}
