package signboards

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/pkg/db/models"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

const defaultQuantity = 1

// SignboardDTO is the API view of a signboard.
type SignboardDTO struct {
	ID          uuid.UUID             `json:"id"`
	Comment     string                `json:"comment"`
	Quantity    int                   `json:"quantity"`
	Status      enums.SignboardStatus `json:"status"`
	Description string                `json:"description"`
	Size        string                `json:"size"`
	Location    string                `json:"location"`
	Notes       string                `json:"notes"`
	ImagePath   string                `json:"image_path"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CreateSignboardInput holds creation-time data. Nil Quantity and Status take defaults.
type CreateSignboardInput struct {
	Comment     string
	Quantity    *int
	Status      *enums.SignboardStatus
	Description string
	Size        string
	Location    string
	Notes       string
	ImagePath   string
}

// UpdateSignboardInput patches metadata. Quantity is owned by the ledger and
// cannot be set here.
type UpdateSignboardInput struct {
	Comment     *string
	Status      *enums.SignboardStatus
	Description *string
	Size        *string
	Location    *string
	Notes       *string
	ImagePath   *string
}

// IsEmpty reports whether the patch changes nothing.
func (u UpdateSignboardInput) IsEmpty() bool {
	return u.Comment == nil &&
		u.Status == nil &&
		u.Description == nil &&
		u.Size == nil &&
		u.Location == nil &&
		u.Notes == nil &&
		u.ImagePath == nil
}

func (u UpdateSignboardInput) columns() map[string]any {
	updates := map[string]any{}
	if u.Comment != nil {
		updates["comment"] = strings.TrimSpace(*u.Comment)
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Size != nil {
		updates["size"] = *u.Size
	}
	if u.Location != nil {
		updates["location"] = *u.Location
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	if u.ImagePath != nil {
		updates["image_path"] = *u.ImagePath
	}
	return updates
}

// FromModel maps the persisted signboard into a DTO.
func FromModel(m *models.Signboard) *SignboardDTO {
	if m == nil {
		return nil
	}
	return &SignboardDTO{
		ID:          m.ID,
		Comment:     m.Comment,
		Quantity:    m.Quantity,
		Status:      m.Status,
		Description: m.Description,
		Size:        m.Size,
		Location:    m.Location,
		Notes:       m.Notes,
		ImagePath:   m.ImagePath,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ToModel prepares the GORM model, supplying defaults.
func (c CreateSignboardInput) ToModel() *models.Signboard {
	model := &models.Signboard{
		Comment:     strings.TrimSpace(c.Comment),
		Quantity:    defaultQuantity,
		Status:      enums.SignboardStatusInStock,
		Description: c.Description,
		Size:        c.Size,
		Location:    c.Location,
		Notes:       c.Notes,
		ImagePath:   c.ImagePath,
	}
	if c.Quantity != nil {
		model.Quantity = *c.Quantity
	}
	if c.Status != nil {
		model.Status = *c.Status
	}
	return model
}
