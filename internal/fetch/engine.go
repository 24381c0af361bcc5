// Package fetch tolerates the lag between a remote audit finishing and its
// report data becoming queryable: a freshly finished crawl can legitimately
// answer with zero rows for a while.
package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/telemetry"
)

// ReportFetcher fetches a full saved report across all of its pages.
type ReportFetcher interface {
	FetchReport(ctx context.Context, reportID string, pageSize int) (report.Table, error)
}

// Config tunes the retry policy. The defaults absorb the remote system's
// report-generation lag observed in production.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	PageSize    int
}

const (
	defaultMaxAttempts = 10
	defaultDelay       = 30 * time.Second
	defaultPageSize    = 1000
)

// Engine wraps a ReportFetcher with retry-on-empty semantics. Remote errors
// stop the loop immediately; only an empty success is retried.
type Engine struct {
	fetcher ReportFetcher
	cfg     Config
	logger  *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an Engine, applying defaults for zero-valued knobs.
func NewEngine(fetcher ReportFetcher, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{fetcher: fetcher, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Budget is the worst-case wall time the retry loop can hold a request:
// attempts times delay. Callers size their request timeout from it.
func (e *Engine) Budget() time.Duration {
	return time.Duration(e.cfg.MaxAttempts) * e.cfg.Delay
}

// FetchReportWithRetry fetches the report, retrying with a fixed delay while
// the row count stays zero. Exhausting all attempts returns the empty table
// and no error: the caller decides whether empty data is fatal for its stage.
func (e *Engine) FetchReportWithRetry(ctx context.Context, reportID string) (report.Table, error) {
	var tbl report.Table
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		var err error
		tbl, err = e.fetcher.FetchReport(ctx, reportID, e.cfg.PageSize)
		if err != nil {
			return report.Table{}, fmt.Errorf("fetch report %s (attempt %d): %w", reportID, attempt, err)
		}
		telemetry.ObserveFetchAttempt(!tbl.Empty())
		if !tbl.Empty() {
			return tbl, nil
		}
		if attempt == e.cfg.MaxAttempts {
			break
		}
		e.logger.Info("report empty, waiting for remote data",
			zap.String("report_id", reportID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Duration("delay", e.cfg.Delay),
		)
		if err := e.sleep(ctx, e.cfg.Delay); err != nil {
			return report.Table{}, fmt.Errorf("fetch report %s interrupted: %w", reportID, err)
		}
	}
	return tbl, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
