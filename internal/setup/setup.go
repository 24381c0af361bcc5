// Package setup provisions the remote resources the pipeline depends on:
// the primary saved report, the secondary verification audit, its broken-pages
// report, and the webhook subscriptions pointing back at this service.
// Provisioning is idempotent; rerunning it reuses whatever already exists.
package setup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/lifecycle"
)

// Summary reports what a provisioning run found or created.
type Summary struct {
	PrimaryReport  lifecycle.EnsureResult
	SecondaryAudit lifecycle.EnsureResult
	BrokenReport   lifecycle.EnsureResult
}

// Provisioner drives the lifecycle manager through a full setup pass.
type Provisioner struct {
	manager *lifecycle.Manager
	log     *execlog.Log
	logger  *zap.Logger
}

// NewProvisioner builds a Provisioner.
func NewProvisioner(manager *lifecycle.Manager, log *execlog.Log, logger *zap.Logger) *Provisioner {
	if log == nil {
		log = execlog.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{manager: manager, log: log, logger: logger}
}

// Run provisions every remote resource in dependency order and then points
// both audits' webhook subscriptions at this service. Order matters: the
// secondary audit clones settings from the primary audit, and subscriptions
// need both audits to exist.
func (p *Provisioner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	var err error

	if sum.PrimaryReport, err = p.manager.EnsurePrimaryReport(ctx); err != nil {
		return sum, fmt.Errorf("provisioning primary report: %w", err)
	}
	p.logResult("primary saved report", sum.PrimaryReport)

	if sum.SecondaryAudit, err = p.manager.EnsureSecondaryAudit(ctx); err != nil {
		return sum, fmt.Errorf("provisioning secondary audit: %w", err)
	}
	p.logResult("secondary audit", sum.SecondaryAudit)

	if sum.BrokenReport, err = p.manager.EnsureSecondaryReport(ctx); err != nil {
		return sum, fmt.Errorf("provisioning broken-pages report: %w", err)
	}
	p.logResult("broken-pages report", sum.BrokenReport)

	if err := p.manager.ConfigureWebhookSubscriptions(ctx); err != nil {
		return sum, fmt.Errorf("configuring webhook subscriptions: %w", err)
	}
	p.log.Info(execlog.ActionProvision, "webhook subscriptions configured")

	return sum, nil
}

func (p *Provisioner) logResult(what string, res lifecycle.EnsureResult) {
	verb := "reusing existing"
	if res.Created {
		verb = "created"
	}
	p.log.Info(execlog.ActionProvision, fmt.Sprintf("%s %s %s", verb, what, res.ID))
	p.logger.Info("provisioned resource",
		zap.String("resource", what),
		zap.String("id", res.ID),
		zap.Bool("created", res.Created),
	)
}
