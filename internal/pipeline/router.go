// Package pipeline implements the two-stage audit orchestration state
// machine. The router is stateless across invocations: the logical stage is
// inferred entirely from the webhook's stage parameter, and stage-to-stage
// correlation flows through the persisted report tables, not run IDs.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/settings"
	"github.com/siteproof/linkaudit/internal/store"
)

// Stage identifies which logical half of the workflow a webhook delivery
// belongs to.
type Stage string

// Valid stages.
const (
	StagePrimary   Stage = "primary"
	StageSecondary Stage = "secondary"
)

// ErrUnknownStage rejects a delivery before any remote call is made.
var ErrUnknownStage = errors.New("unknown stage")

// ParseStage validates the raw stage parameter.
func ParseStage(raw string) (Stage, error) {
	switch Stage(raw) {
	case StagePrimary, StageSecondary:
		return Stage(raw), nil
	case "":
		return "", fmt.Errorf("%w: stage parameter is missing", ErrUnknownStage)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
}

// Fetcher is the retry-capable report fetch the stages run on.
type Fetcher interface {
	FetchReportWithRetry(ctx context.Context, reportID string) (report.Table, error)
}

// Trigger is the slice of the lifecycle manager the primary stage uses.
type Trigger interface {
	UpdateAndTriggerSecondaryAudit(ctx context.Context, urls []string) (string, error)
}

// Router dispatches webhook deliveries to stage handlers. It is not safe
// against concurrent re-entrancy on the same stage; the caller serializes
// per-target (see the API layer's lock).
type Router struct {
	fetcher  Fetcher
	trigger  Trigger
	reports  store.ReportStore
	settings settings.Getter
	policy   report.DuplicatePolicy
	log      *execlog.Log
	logger   *zap.Logger
}

// NewRouter builds a Router. The duplicate-key policy applies to the
// secondary stage's join.
func NewRouter(
	fetcher Fetcher,
	trigger Trigger,
	reports store.ReportStore,
	st settings.Getter,
	policy report.DuplicatePolicy,
	log *execlog.Log,
	logger *zap.Logger,
) *Router {
	if log == nil {
		log = execlog.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		fetcher:  fetcher,
		trigger:  trigger,
		reports:  reports,
		settings: st,
		policy:   policy,
		log:      log,
		logger:   logger,
	}
}

// Handle runs the stage named by rawStage. It is the error boundary for the
// webhook transport: panics inside a stage are converted into errors so the
// caller can always produce a well-formed response.
func (r *Router) Handle(ctx context.Context, rawStage string) (err error) {
	stage, err := ParseStage(rawStage)
	if err != nil {
		return err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage, rec)
		}
		if err != nil {
			r.log.Error(execlog.ActionWebhook, fmt.Sprintf("stage %s failed: %v", stage, err))
			r.logger.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
		}
	}()

	r.log.Info(execlog.ActionWebhook, fmt.Sprintf("stage %s notification received", stage))
	switch stage {
	case StagePrimary:
		err = r.runPrimary(ctx)
	case StageSecondary:
		err = r.runSecondary(ctx)
	}
	if err == nil {
		r.log.Info(execlog.ActionWebhook, fmt.Sprintf("stage %s completed", stage))
	}
	return err
}
