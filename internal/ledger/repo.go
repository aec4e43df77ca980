package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/internal/repo"
	"github.com/angelmondragon/signstock-backend/pkg/db/models"
)

// Repository persists quantity transitions and serves the history reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.Signboard, error)
	ListStocked(ctx context.Context) ([]models.Signboard, error)
	ApplyQuantityChange(ctx context.Context, id uuid.UUID, expectedVersion int64, next int, entry Entry) (*models.Signboard, *models.SignboardQuantityHistory, error)
	AppendEntry(ctx context.Context, id uuid.UUID, entry Entry) (*models.SignboardQuantityHistory, error)
	ListHistory(ctx context.Context, id *uuid.UUID) ([]HistoryRow, error)
	AuditSnapshot(ctx context.Context) ([]AuditRow, error)
}

// HistoryRow is a history entry joined with the current signboard comment.
// SignboardComment is nil once the signboard has been deleted.
type HistoryRow struct {
	models.SignboardQuantityHistory
	SignboardComment *string `gorm:"column:signboard_comment"`
}

// AuditRow pairs a stored quantity with the newest entry recorded for it.
type AuditRow struct {
	SignboardID       uuid.UUID `gorm:"column:id"`
	Comment           string    `gorm:"column:comment"`
	Quantity          int       `gorm:"column:quantity"`
	LastQuantityAfter *int      `gorm:"column:last_quantity_after"`
}

type repository struct {
	repo.Base
}

// NewRepository returns a gorm-backed Repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Signboard, error) {
	var signboard models.Signboard
	if err := r.DB(ctx).Where("id = ?", id).Take(&signboard).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &signboard, nil
}

func (r *repository) ListStocked(ctx context.Context) ([]models.Signboard, error) {
	var signboards []models.Signboard
	err := r.DB(ctx).
		Where("quantity > 0").
		Order("created_at ASC").
		Order("id ASC").
		Find(&signboards).Error
	return signboards, err
}

// ApplyQuantityChange must run inside a transaction. It locks the row,
// rejects a stale expectedVersion, swaps the quantity and appends entry.
func (r *repository) ApplyQuantityChange(ctx context.Context, id uuid.UUID, expectedVersion int64, next int, entry Entry) (*models.Signboard, *models.SignboardQuantityHistory, error) {
	var current models.Signboard
	if err := r.ForUpdate(ctx).Where("id = ?", id).Take(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if current.Version != expectedVersion {
		return nil, nil, ErrConcurrencyConflict
	}

	changedAt := entry.CreatedAt
	if changedAt.IsZero() {
		changedAt = time.Now().UTC()
	}
	res := r.DB(ctx).Model(&models.Signboard{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"quantity":   next,
			"version":    expectedVersion + 1,
			"updated_at": changedAt,
		})
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrConcurrencyConflict
	}

	entry.CreatedAt = changedAt
	history, err := r.AppendEntry(ctx, id, entry)
	if err != nil {
		return nil, nil, err
	}

	current.Quantity = next
	current.Version = expectedVersion + 1
	current.UpdatedAt = changedAt
	return &current, history, nil
}

func (r *repository) AppendEntry(ctx context.Context, id uuid.UUID, entry Entry) (*models.SignboardQuantityHistory, error) {
	history := &models.SignboardQuantityHistory{
		SignboardID:    id,
		ChangeType:     entry.Kind,
		ChangeAmount:   entry.Amount,
		QuantityBefore: entry.QuantityBefore,
		QuantityAfter:  entry.QuantityAfter,
		Reason:         entry.Reason,
		CreatedAt:      entry.CreatedAt,
	}
	if err := r.DB(ctx).Create(history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// ListHistory returns entries newest first. A nil id lists every signboard.
func (r *repository) ListHistory(ctx context.Context, id *uuid.UUID) ([]HistoryRow, error) {
	q := r.DB(ctx).
		Table("signboard_quantity_history AS h").
		Select("h.*, s.comment AS signboard_comment").
		Joins("LEFT JOIN signboards s ON s.id = h.signboard_id")
	if id != nil {
		q = q.Where("h.signboard_id = ?", *id)
	}

	var rows []HistoryRow
	err := q.Order("h.created_at DESC").Order("h.id DESC").Scan(&rows).Error
	return rows, err
}

func (r *repository) AuditSnapshot(ctx context.Context) ([]AuditRow, error) {
	var rows []AuditRow
	err := r.DB(ctx).Raw(`
SELECT s.id, s.comment, s.quantity,
	(SELECT h.quantity_after
	   FROM signboard_quantity_history h
	  WHERE h.signboard_id = s.id
	  ORDER BY h.created_at DESC, h.id DESC
	  LIMIT 1) AS last_quantity_after
FROM signboards s
ORDER BY s.created_at ASC, s.id ASC`).Scan(&rows).Error
	return rows, err
}
