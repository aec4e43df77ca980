package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
)

type ledgerAuditor interface {
	Audit(ctx context.Context) ([]ledger.Drift, error)
}

type LedgerAuditJobParams struct {
	Logger  *logger.Logger
	Auditor ledgerAuditor
	Metrics *metrics.LedgerMetrics
}

// NewLedgerAuditJob checks every signboard quantity against its newest history
// entry. Drift is reported, never repaired.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("ledger auditor required")
	}
	return &ledgerAuditJob{
		logg:    params.Logger,
		auditor: params.Auditor,
		metrics: params.Metrics,
	}, nil
}

type ledgerAuditJob struct {
	logg    *logger.Logger
	auditor ledgerAuditor
	metrics *metrics.LedgerMetrics
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	drift, err := j.auditor.Audit(ctx)
	if err != nil {
		return fmt.Errorf("ledger audit: %w", err)
	}
	j.metrics.SetDrift(len(drift))

	for _, d := range drift {
		logCtx := j.logg.WithSignboardID(ctx, d.SignboardID.String())
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"comment":           d.Comment,
			"quantity":          d.Quantity,
			"expected_quantity": d.Expected(),
			"has_history":       d.LastQuantityAfter != nil,
		})
		j.logg.Warn(logCtx, "ledger drift detected")
	}

	logCtx := j.logg.WithField(ctx, "drift_count", len(drift))
	j.logg.Info(logCtx, "ledger audit complete")
	return nil
}
