package signboards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/pkg/db/models"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/outbox"
	"github.com/angelmondragon/signstock-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OpeningRecorder writes the first ledger entry of a new signboard.
type OpeningRecorder interface {
	RecordOpening(ctx context.Context, tx *gorm.DB, signboard *models.Signboard) error
}

type signboardRepository interface {
	CreateWithTx(tx *gorm.DB, signboard *models.Signboard) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Signboard, error)
	List(ctx context.Context) ([]models.Signboard, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Signboard, error)
	DeleteAllWithTx(ctx context.Context, tx *gorm.DB) ([]models.Signboard, error)
}

// Service exposes signboard CRUD. Quantity changes go through the ledger.
type Service interface {
	Create(ctx context.Context, input CreateSignboardInput) (*SignboardDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SignboardDTO, error)
	List(ctx context.Context) ([]SignboardDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSignboardInput) (*SignboardDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

type service struct {
	repo    signboardRepository
	tx      txRunner
	opening OpeningRecorder
	outbox  outboxPublisher
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a signboard service with the provided dependencies.
func NewService(repo signboardRepository, tx txRunner, opening OpeningRecorder, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("signboard repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if opening == nil {
		return nil, fmt.Errorf("opening recorder required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		opening: opening,
		outbox:  outbox,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSignboardInput) (*SignboardDTO, error) {
	if strings.TrimSpace(input.Comment) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is required")
	}
	if input.Quantity != nil && (*input.Quantity < 0 || *input.Quantity > ledger.MaxQuantity) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater").
			WithDetails(map[string]any{"quantity": *input.Quantity})
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, invalidStatus(*input.Status)
	}

	signboard := input.ToModel()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, signboard); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create signboard")
		}
		return s.opening.RecordOpening(ctx, tx, signboard)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithSignboardID(ctx, signboard.ID.String())
		s.logg.Info(logCtx, "signboard created")
	}
	return FromModel(signboard), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SignboardDTO, error) {
	signboard, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(signboard), nil
}

func (s *service) List(ctx context.Context) ([]SignboardDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list signboards")
	}
	out := make([]SignboardDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Update patches metadata only. An empty patch returns the signboard as stored.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateSignboardInput) (*SignboardDTO, error) {
	if input.Comment != nil && strings.TrimSpace(*input.Comment) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment cannot be empty")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, invalidStatus(*input.Status)
	}
	if input.IsEmpty() {
		return s.Get(ctx, id)
	}

	if err := s.repo.UpdateColumns(ctx, id, input.columns()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update signboard")
	}
	return s.Get(ctx, id)
}

// Delete removes the signboard. Its history entries are kept.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		deleted, err := s.repo.DeleteWithTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.ErrNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete signboard")
		}
		return s.outbox.Emit(ctx, tx, s.deletedEvent(deleted))
	})
}

func (s *service) DeleteAll(ctx context.Context) (int64, error) {
	var deleted []models.Signboard
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.DeleteAllWithTx(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete signboards")
		}
		for i := range rows {
			if err := s.outbox.Emit(ctx, tx, s.deletedEvent(&rows[i])); err != nil {
				return err
			}
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "deleted_count", len(deleted))
		s.logg.Info(logCtx, "signboards deleted")
	}
	return int64(len(deleted)), nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Signboard, error) {
	signboard, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load signboard")
	}
	return signboard, nil
}

func (s *service) deletedEvent(signboard *models.Signboard) outbox.DomainEvent {
	deletedAt := s.now()
	return outbox.DomainEvent{
		EventType:     enums.EventSignboardDeleted,
		AggregateType: enums.AggregateSignboard,
		AggregateID:   signboard.ID,
		OccurredAt:    deletedAt,
		Data: payloads.SignboardDeletedEvent{
			SignboardID:   signboard.ID,
			Comment:       signboard.Comment,
			FinalQuantity: signboard.Quantity,
			DeletedAt:     deletedAt,
		},
	}
}

func invalidStatus(status enums.SignboardStatus) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
		WithDetails(map[string]any{"status": string(status)})
}
