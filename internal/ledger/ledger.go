// Package ledger owns every quantity change on a signboard: the pure
// transition, its persistence, and the read-side history projection.
package ledger

import (
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/signstock-backend/pkg/enums"
)

// MaxQuantity bounds a signboard quantity to what the integer column holds.
const MaxQuantity = math.MaxInt32

// Request is one signed change the caller wants applied.
type Request struct {
	Kind   enums.QuantityChangeKind
	Amount int
	Reason string
}

// Entry is the history record a transition produces.
type Entry struct {
	Kind           enums.QuantityChangeKind
	Amount         int
	QuantityBefore int
	QuantityAfter  int
	Reason         string
	CreatedAt      time.Time
}

// Transition is the outcome of Apply: the next quantity and its matching entry.
type Transition struct {
	Next  int
	Entry Entry
}

// Apply validates req against current and computes the transition. It has no
// side effects; on error nothing should be persisted.
func Apply(current int, req Request, now time.Time) (Transition, error) {
	if !req.Kind.IsValid() {
		return Transition{}, ErrInvalidKind.WithDetails(map[string]any{"change_type": string(req.Kind)})
	}
	if req.Amount <= 0 {
		return Transition{}, ErrInvalidAmount.WithDetails(map[string]any{"amount": req.Amount})
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return Transition{}, ErrMissingReason
	}

	var next int
	switch req.Kind {
	case enums.QuantityChangeDecrease:
		if req.Amount > current {
			return Transition{}, ErrInsufficientQuantity.WithDetails(map[string]any{
				"current_quantity": current,
				"requested":        req.Amount,
			})
		}
		next = current - req.Amount
	default:
		if req.Amount > MaxQuantity-current {
			return Transition{}, ErrInvalidAmount.WithDetails(map[string]any{
				"amount":       req.Amount,
				"max_quantity": MaxQuantity,
			})
		}
		next = current + req.Amount
	}

	return Transition{
		Next: next,
		Entry: Entry{
			Kind:           req.Kind,
			Amount:         req.Amount,
			QuantityBefore: current,
			QuantityAfter:  next,
			Reason:         reason,
			CreatedAt:      now,
		},
	}, nil
}
