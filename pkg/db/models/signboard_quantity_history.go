package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

// SignboardQuantityHistory is one append-only ledger entry. SignboardID is a
// weak reference so entries outlive the signboard they describe.
type SignboardQuantityHistory struct {
	ID             int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	SignboardID    uuid.UUID                `gorm:"column:signboard_id;type:uuid;not null;index"`
	ChangeType     enums.QuantityChangeKind `gorm:"column:change_type;type:text;not null"`
	ChangeAmount   int                      `gorm:"column:change_amount;not null"`
	QuantityBefore int                      `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                      `gorm:"column:quantity_after;not null"`
	Reason         string                   `gorm:"column:reason;not null"`
	CreatedAt      time.Time                `gorm:"column:created_at;not null;index"`
}

func (SignboardQuantityHistory) TableName() string {
	return "signboard_quantity_history"
}
