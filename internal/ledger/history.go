package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/pkg/db/models"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

// HistoryEntry is the read model served by the history endpoints.
type HistoryEntry struct {
	ID             int64                    `json:"id"`
	SignboardID    uuid.UUID                `json:"signboard_id"`
	SignboardName  string                   `json:"signboard_name"`
	ChangeType     enums.QuantityChangeKind `json:"change_type"`
	ChangeAmount   int                      `json:"change_amount"`
	QuantityBefore int                      `json:"quantity_before"`
	QuantityAfter  int                      `json:"quantity_after"`
	Reason         string                   `json:"reason"`
	CreatedAt      time.Time                `json:"created_at"`
}

// Drift is a signboard whose stored quantity disagrees with its newest entry.
type Drift struct {
	SignboardID       uuid.UUID
	Comment           string
	Quantity          int
	LastQuantityAfter *int
}

// Expected returns the quantity the history implies.
func (d Drift) Expected() int {
	if d.LastQuantityAfter == nil {
		return 0
	}
	return *d.LastQuantityAfter
}

// HistoryService serves read-only projections of the ledger.
type HistoryService interface {
	ListAll(ctx context.Context) ([]HistoryEntry, error)
	ListForEntity(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error)
	Audit(ctx context.Context) ([]Drift, error)
}

type historyService struct {
	repo Repository
}

// NewHistoryService builds the history reader.
func NewHistoryService(repo Repository) (HistoryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &historyService{repo: repo}, nil
}

// ListAll returns every entry newest first, labelled with the signboard comment.
// Entries of deleted signboards fall back to the signboard id as their label.
func (h *historyService) ListAll(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := h.repo.ListHistory(ctx, nil)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func (h *historyService) ListForEntity(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	if _, err := h.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := h.repo.ListHistory(ctx, &id)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// Audit compares each signboard with its newest history entry. A signboard
// without entries is expected to hold zero.
func (h *historyService) Audit(ctx context.Context) ([]Drift, error) {
	rows, err := h.repo.AuditSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var drift []Drift
	for _, row := range rows {
		d := Drift{
			SignboardID:       row.SignboardID,
			Comment:           row.Comment,
			Quantity:          row.Quantity,
			LastQuantityAfter: row.LastQuantityAfter,
		}
		if d.Quantity != d.Expected() {
			drift = append(drift, d)
		}
	}
	return drift, nil
}

func toEntries(rows []HistoryRow) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(rows))
	for i := range rows {
		label := rows[i].SignboardID.String()
		if rows[i].SignboardComment != nil {
			label = *rows[i].SignboardComment
		}
		entries = append(entries, EntryFromModel(&rows[i].SignboardQuantityHistory, label))
	}
	return entries
}

// EntryFromModel converts a stored row, labelled with the given signboard name.
func EntryFromModel(m *models.SignboardQuantityHistory, label string) HistoryEntry {
	return HistoryEntry{
		ID:             m.ID,
		SignboardID:    m.SignboardID,
		SignboardName:  label,
		ChangeType:     m.ChangeType,
		ChangeAmount:   m.ChangeAmount,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}
