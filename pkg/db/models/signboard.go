package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

// Signboard is a trackable stock item. Quantity changes only through the ledger.
type Signboard struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Comment     string                `gorm:"column:comment;not null"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	Status      enums.SignboardStatus `gorm:"column:status;type:text;not null"`
	Description string                `gorm:"column:description;not null"`
	Size        string                `gorm:"column:size;not null"`
	Location    string                `gorm:"column:location;not null"`
	Notes       string                `gorm:"column:notes;not null"`
	ImagePath   string                `gorm:"column:image_path;not null"`
	Version     int64                 `gorm:"column:version;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Signboard) TableName() string {
	return "signboards"
}

func (s *Signboard) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
