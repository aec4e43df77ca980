package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

// SignboardQuantityChangedEvent mirrors one committed ledger entry.
type SignboardQuantityChangedEvent struct {
	SignboardID    uuid.UUID                `json:"signboard_id"`
	HistoryID      int64                    `json:"history_id"`
	ChangeType     enums.QuantityChangeKind `json:"change_type"`
	ChangeAmount   int                      `json:"change_amount"`
	QuantityBefore int                      `json:"quantity_before"`
	QuantityAfter  int                      `json:"quantity_after"`
	Reason         string                   `json:"reason"`
	Version        int64                    `json:"version"`
	ChangedAt      time.Time                `json:"changed_at"`
}

// SignboardDeletedEvent is emitted when a signboard row is removed. Its
// history stays queryable.
type SignboardDeletedEvent struct {
	SignboardID   uuid.UUID `json:"signboard_id"`
	Comment       string    `json:"comment"`
	FinalQuantity int       `json:"final_quantity"`
	DeletedAt     time.Time `json:"deleted_at"`
}
