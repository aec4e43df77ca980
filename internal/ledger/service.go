package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/pkg/db/models"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
	"github.com/angelmondragon/signstock-backend/pkg/outbox"
	"github.com/angelmondragon/signstock-backend/pkg/outbox/payloads"
)

const (
	defaultMaxAttempts       = 3
	defaultQuickAdjustReason = "quick adjust"
	defaultResetReason       = "reset all quantities"

	// OpeningReason labels the entry written when a signboard is created with stock.
	OpeningReason = "initial stock"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies quantity changes and records each one in the history.
type Service interface {
	Apply(ctx context.Context, id uuid.UUID, req Request) (*Result, error)
	Increase(ctx context.Context, id uuid.UUID, amount int, reason string) (*Result, error)
	Decrease(ctx context.Context, id uuid.UUID, amount int, reason string) (*Result, error)
	Increment(ctx context.Context, id uuid.UUID, reason string) (*Result, error)
	Decrement(ctx context.Context, id uuid.UUID, reason string) (*Result, error)
	ResetAll(ctx context.Context, reason string) (int64, error)
	RecordOpening(ctx context.Context, tx *gorm.DB, signboard *models.Signboard) error
}

// Result is the committed state after a change.
type Result struct {
	Signboard *models.Signboard
	Entry     *models.SignboardQuantityHistory
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	Repository        Repository
	DB                txRunner
	Outbox            outbox.Emitter
	Metrics           *metrics.LedgerMetrics
	Logger            *logger.Logger
	MaxAttempts       int
	QuickAdjustReason string
	ResetReason       string
	Now               func() time.Time
}

type service struct {
	repo              Repository
	db                txRunner
	outbox            outbox.Emitter
	metrics           *metrics.LedgerMetrics
	logg              *logger.Logger
	maxAttempts       int
	quickAdjustReason string
	resetReason       string
	now               func() time.Time
}

// NewService builds the ledger service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = defaultMaxAttempts
	}
	if params.QuickAdjustReason == "" {
		params.QuickAdjustReason = defaultQuickAdjustReason
	}
	if params.ResetReason == "" {
		params.ResetReason = defaultResetReason
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:              params.Repository,
		db:                params.DB,
		outbox:            params.Outbox,
		metrics:           params.Metrics,
		logg:              params.Logger,
		maxAttempts:       params.MaxAttempts,
		quickAdjustReason: params.QuickAdjustReason,
		resetReason:       params.ResetReason,
		now:               params.Now,
	}, nil
}

func (s *service) Apply(ctx context.Context, id uuid.UUID, req Request) (*Result, error) {
	return s.apply(ctx, id, func(int) (Request, bool) { return req, true })
}

func (s *service) Increase(ctx context.Context, id uuid.UUID, amount int, reason string) (*Result, error) {
	return s.Apply(ctx, id, Request{Kind: enums.QuantityChangeIncrease, Amount: amount, Reason: reason})
}

func (s *service) Decrease(ctx context.Context, id uuid.UUID, amount int, reason string) (*Result, error) {
	return s.Apply(ctx, id, Request{Kind: enums.QuantityChangeDecrease, Amount: amount, Reason: reason})
}

// Increment adds one unit. A blank reason records the quick adjust reason.
func (s *service) Increment(ctx context.Context, id uuid.UUID, reason string) (*Result, error) {
	return s.Increase(ctx, id, 1, s.quickReason(reason))
}

// Decrement removes one unit. A blank reason records the quick adjust reason.
func (s *service) Decrement(ctx context.Context, id uuid.UUID, reason string) (*Result, error) {
	return s.Decrease(ctx, id, 1, s.quickReason(reason))
}

// ResetAll zeroes every stocked signboard through the ledger, one entry each.
// It keeps going past per-signboard failures and returns them combined.
func (s *service) ResetAll(ctx context.Context, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		reason = s.resetReason
	}
	stocked, err := s.repo.ListStocked(ctx)
	if err != nil {
		return 0, err
	}

	var (
		reset int64
		errs  error
	)
	for _, signboard := range stocked {
		if err := ctx.Err(); err != nil {
			return reset, multierr.Append(errs, err)
		}
		result, err := s.apply(ctx, signboard.ID, func(current int) (Request, bool) {
			if current == 0 {
				return Request{}, false
			}
			return Request{Kind: enums.QuantityChangeDecrease, Amount: current, Reason: reason}, true
		})
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("reset signboard %s: %w", signboard.ID, err))
			continue
		}
		if result.Entry != nil {
			reset++
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"reset_count": reset,
			"failures":    len(multierr.Errors(errs)),
		})
		s.logg.Info(logCtx, "signboard quantities reset")
	}
	return reset, errs
}

// RecordOpening writes the entry for a just-created signboard's starting stock
// on tx. A signboard created empty gets no entry.
func (s *service) RecordOpening(ctx context.Context, tx *gorm.DB, signboard *models.Signboard) error {
	if signboard == nil || signboard.Quantity == 0 {
		return nil
	}
	transition, err := Apply(0, Request{
		Kind:   enums.QuantityChangeIncrease,
		Amount: signboard.Quantity,
		Reason: OpeningReason,
	}, s.now())
	if err != nil {
		return err
	}
	history, err := s.repo.WithTx(tx).AppendEntry(ctx, signboard.ID, transition.Entry)
	if err != nil {
		return err
	}
	if err := s.outbox.Emit(ctx, tx, quantityChangedEvent(signboard, history)); err != nil {
		return err
	}
	s.metrics.IncChange(string(history.ChangeType))
	return nil
}

func (s *service) quickReason(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return s.quickAdjustReason
	}
	return reason
}

// apply runs one read, compute and compare-and-swap cycle, retrying when a
// concurrent writer moved the version. build sees the freshly read quantity
// each attempt; returning false skips the change.
func (s *service) apply(ctx context.Context, id uuid.UUID, build func(current int) (Request, bool)) (*Result, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, s.fail(err)
		}
		req, ok := build(current.Quantity)
		if !ok {
			return &Result{Signboard: current}, nil
		}
		transition, err := Apply(current.Quantity, req, s.now())
		if err != nil {
			return nil, s.fail(err)
		}

		var result Result
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			updated, history, err := s.repo.WithTx(tx).ApplyQuantityChange(ctx, id, current.Version, transition.Next, transition.Entry)
			if err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, quantityChangedEvent(updated, history)); err != nil {
				return err
			}
			result = Result{Signboard: updated, Entry: history}
			return nil
		})
		if err == nil {
			s.metrics.IncChange(string(transition.Entry.Kind))
			return &result, nil
		}
		if errors.Is(err, ErrConcurrencyConflict) && attempt < s.maxAttempts && ctx.Err() == nil {
			s.metrics.IncRetry()
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"signboard_id": id.String(),
					"attempt":      attempt,
				})
				s.logg.Warn(logCtx, "ledger version conflict, retrying")
			}
			continue
		}
		return nil, s.fail(err)
	}
}

func (s *service) fail(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ledger write failed")
		err = typed
	}
	s.metrics.IncFailure(string(typed.Code()))
	return err
}

func quantityChangedEvent(signboard *models.Signboard, history *models.SignboardQuantityHistory) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventSignboardQuantityChanged,
		AggregateType: enums.AggregateSignboard,
		AggregateID:   signboard.ID,
		OccurredAt:    history.CreatedAt,
		Data: payloads.SignboardQuantityChangedEvent{
			SignboardID:    signboard.ID,
			HistoryID:      history.ID,
			ChangeType:     history.ChangeType,
			ChangeAmount:   history.ChangeAmount,
			QuantityBefore: history.QuantityBefore,
			QuantityAfter:  history.QuantityAfter,
			Reason:         history.Reason,
			Version:        signboard.Version,
			ChangedAt:      history.CreatedAt,
		},
	}
}
