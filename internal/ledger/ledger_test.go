package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/signstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
)

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		current    int
		req        Request
		wantErr    error
		wantNext   int
		wantReason string
	}{
		{
			name:       "increase",
			current:    10,
			req:        Request{Kind: enums.QuantityChangeIncrease, Amount: 20, Reason: "restock"},
			wantNext:   30,
			wantReason: "restock",
		},
		{
			name:       "decrease to zero",
			current:    5,
			req:        Request{Kind: enums.QuantityChangeDecrease, Amount: 5, Reason: "installed"},
			wantNext:   0,
			wantReason: "installed",
		},
		{
			name:       "reason is trimmed",
			current:    0,
			req:        Request{Kind: enums.QuantityChangeIncrease, Amount: 1, Reason: "  delivery \n"},
			wantNext:   1,
			wantReason: "delivery",
		},
		{
			name:    "zero amount",
			current: 5,
			req:     Request{Kind: enums.QuantityChangeIncrease, Amount: 0, Reason: "x"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			current: 5,
			req:     Request{Kind: enums.QuantityChangeDecrease, Amount: -3, Reason: "x"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "blank reason",
			current: 5,
			req:     Request{Kind: enums.QuantityChangeIncrease, Amount: 1, Reason: "   "},
			wantErr: ErrMissingReason,
		},
		{
			name:    "amount checked before reason",
			current: 5,
			req:     Request{Kind: enums.QuantityChangeDecrease, Amount: 0, Reason: ""},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "reason checked before stock",
			current: 1,
			req:     Request{Kind: enums.QuantityChangeDecrease, Amount: 9, Reason: ""},
			wantErr: ErrMissingReason,
		},
		{
			name:    "insufficient quantity",
			current: 5,
			req:     Request{Kind: enums.QuantityChangeDecrease, Amount: 10, Reason: "install"},
			wantErr: ErrInsufficientQuantity,
		},
		{
			name:    "unknown kind",
			current: 5,
			req:     Request{Kind: "set", Amount: 1, Reason: "x"},
			wantErr: ErrInvalidKind,
		},
		{
			name:    "overflow",
			current: MaxQuantity,
			req:     Request{Kind: enums.QuantityChangeIncrease, Amount: 1, Reason: "x"},
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.current, tc.req, now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if got != (Transition{}) {
					t.Fatalf("expected zero transition on error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Next != tc.wantNext {
				t.Fatalf("expected next %d, got %d", tc.wantNext, got.Next)
			}
			entry := got.Entry
			if entry.QuantityBefore != tc.current || entry.QuantityAfter != tc.wantNext {
				t.Fatalf("unexpected before/after %d/%d", entry.QuantityBefore, entry.QuantityAfter)
			}
			if entry.QuantityAfter != entry.QuantityBefore+tc.req.Kind.Sign()*entry.Amount {
				t.Fatalf("entry does not balance: %+v", entry)
			}
			if entry.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, entry.Reason)
			}
			if !entry.CreatedAt.Equal(now) {
				t.Fatalf("expected timestamp %v, got %v", now, entry.CreatedAt)
			}
		})
	}
}

func TestApplyErrorCodes(t *testing.T) {
	_, err := Apply(2, Request{Kind: enums.QuantityChangeDecrease, Amount: 3, Reason: "install"}, time.Now())
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["current_quantity"] != 2 || details["requested"] != 3 {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	if ErrInsufficientQuantity.Details() != nil {
		t.Fatalf("sentinel must not carry details")
	}

	_, err = Apply(2, Request{Kind: enums.QuantityChangeIncrease, Amount: 1}, time.Now())
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for missing reason, got %v", err)
	}
}
