package ledger

import pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"

// Sentinels returned by the ledger. Match with errors.Is; details attached via
// WithDetails do not affect matching.
var (
	ErrInvalidKind          = pkgerrors.New(pkgerrors.CodeValidation, "change type must be increase or decrease")
	ErrInvalidAmount        = pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	ErrMissingReason        = pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	ErrInsufficientQuantity = pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient quantity")
	ErrNotFound             = pkgerrors.New(pkgerrors.CodeNotFound, "signboard not found")
	ErrConcurrencyConflict  = pkgerrors.New(pkgerrors.CodeConflict, "signboard was modified concurrently")
)
