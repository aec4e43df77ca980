package signboards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/internal/repo"
	"github.com/angelmondragon/signstock-backend/pkg/db/models"
)

// Repository handles signboard persistence outside of quantity changes.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to signboard operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateWithTx persists a new signboard using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, signboard *models.Signboard) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(signboard).Error
}

// FindByID loads a signboard by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Signboard, error) {
	var signboard models.Signboard
	if err := r.DB(ctx).Where("id = ?", id).Take(&signboard).Error; err != nil {
		return nil, err
	}
	return &signboard, nil
}

// List returns every signboard, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Signboard, error) {
	var signboards []models.Signboard
	err := r.DB(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&signboards).Error
	return signboards, err
}

// UpdateColumns applies a metadata patch. It returns gorm.ErrRecordNotFound
// when no row matched.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.Signboard{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteWithTx locks and removes one signboard, returning the deleted row.
func (r *Repository) DeleteWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Signboard, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	base := repo.NewBase(tx)
	var signboard models.Signboard
	if err := base.ForUpdate(ctx).Where("id = ?", id).Take(&signboard).Error; err != nil {
		return nil, err
	}
	if err := base.DB(ctx).Delete(&models.Signboard{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &signboard, nil
}

// DeleteAllWithTx removes every signboard, returning the deleted rows.
// History rows are left in place.
func (r *Repository) DeleteAllWithTx(ctx context.Context, tx *gorm.DB) ([]models.Signboard, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	base := repo.NewBase(tx)
	var signboards []models.Signboard
	if err := base.ForUpdate(ctx).Find(&signboards).Error; err != nil {
		return nil, err
	}
	if len(signboards) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(signboards))
	for _, s := range signboards {
		ids = append(ids, s.ID)
	}
	if err := base.DB(ctx).Where("id IN ?", ids).Delete(&models.Signboard{}).Error; err != nil {
		return nil, err
	}
	return signboards, nil
}
