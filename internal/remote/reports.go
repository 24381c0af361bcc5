package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/siteproof/linkaudit/internal/report"
)

type reportPageResponse struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// GetSavedReport fetches a saved-report definition by ID.
func (c *Client) GetSavedReport(ctx context.Context, reportID string) (SavedReport, error) {
	var out SavedReport
	if err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID), nil, nil, &out); err != nil {
		return SavedReport{}, err
	}
	return out, nil
}

// CreateSavedReport creates a saved report and returns it with the
// server-assigned ID.
func (c *Client) CreateSavedReport(ctx context.Context, def SavedReport) (SavedReport, error) {
	var out SavedReport
	if err := c.do(ctx, http.MethodPost, "/v1/reports", nil, def, &out); err != nil {
		return SavedReport{}, err
	}
	if out.ID == "" {
		return SavedReport{}, fmt.Errorf("remote created report %q without an id", def.Name)
	}
	return out, nil
}

// FetchReportPage fetches one page of report rows. hasMore is false on the
// last page: either the reported page count was reached or the page came back
// short. Headers are populated by the remote system on every page but are
// only authoritative on the first; Append enforces arity from there.
func (c *Client) FetchReportPage(ctx context.Context, reportID string, page, pageSize int) (report.Table, bool, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var resp reportPageResponse
	err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID)+"/rows", q, nil, &resp)
	if err != nil {
		return report.Table{}, false, err
	}

	hasMore := len(resp.Rows) == pageSize
	if resp.TotalPages > 0 && page >= resp.TotalPages {
		hasMore = false
	}
	return report.Table{Headers: resp.Headers, Rows: resp.Rows}, hasMore, nil
}

// FetchReport assembles a full report across all pages. Column headers come
// from the first page; subsequent pages of the same query are assumed to keep
// the same shape.
func (c *Client) FetchReport(ctx context.Context, reportID string, pageSize int) (report.Table, error) {
	if pageSize <= 0 {
		return report.Table{}, fmt.Errorf("page size must be > 0, got %d", pageSize)
	}
	var full report.Table
	for page := 1; ; page++ {
		pageTable, hasMore, err := c.FetchReportPage(ctx, reportID, page, pageSize)
		if err != nil {
			return report.Table{}, fmt.Errorf("fetch report %s page %d: %w", reportID, page, err)
		}
		if err := full.Append(pageTable); err != nil {
			return report.Table{}, fmt.Errorf("report %s page %d: %w", reportID, page, err)
		}
		if !hasMore {
			return full, nil
		}
	}
}
