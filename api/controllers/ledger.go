package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/signstock-backend/api/responses"
	"github.com/angelmondragon/signstock-backend/api/validators"
	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/types"
)

// adjustRequest is decoded for shape only. Amount and reason rules belong to
// the ledger so every caller gets the same errors.
type adjustRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type quantityChangeResponse struct {
	Signboard *signboards.SignboardDTO `json:"signboard"`
	Entry     *ledger.HistoryEntry     `json:"entry"`
}

func newQuantityChangeResponse(result *ledger.Result) quantityChangeResponse {
	resp := quantityChangeResponse{Signboard: signboards.FromModel(result.Signboard)}
	if result.Entry != nil {
		entry := ledger.EntryFromModel(result.Entry, result.Signboard.Comment)
		resp.Entry = &entry
	}
	return resp
}

type adjustFunc func(ctx context.Context, id uuid.UUID, amount int, reason string) (*ledger.Result, error)

type quickAdjustFunc func(ctx context.Context, id uuid.UUID, reason string) (*ledger.Result, error)

// AddQuantity increases stock by the requested amount.
func AddQuantity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("ledger service unavailable", logg)
	}
	return adjust(svc.Increase, logg)
}

// SubtractQuantity decreases stock. Asking for more than is held fails with
// STATE_CONFLICT and leaves the signboard untouched.
func SubtractQuantity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("ledger service unavailable", logg)
	}
	return adjust(svc.Decrease, logg)
}

func IncrementQuantity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("ledger service unavailable", logg)
	}
	return quickAdjust(svc.Increment, logg)
}

func DecrementQuantity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("ledger service unavailable", logg)
	}
	return quickAdjust(svc.Decrement, logg)
}

func adjust(fn adjustFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fn(r.Context(), id, req.Amount, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuantityChangeResponse(result))
	}
}

func quickAdjust(fn quickAdjustFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fn(r.Context(), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuantityChangeResponse(result))
	}
}

// ResetAllQuantities zeroes every stocked signboard through the ledger. The
// body and its reason are optional. When some signboards were reset and others
// failed the response is still 200, listing the failures next to the count.
func ResetAllQuantities(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var req reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.ResetAll(r.Context(), req.Reason)
		if err != nil && count == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result := types.ResetResult{Count: count}
		for _, failure := range multierr.Errors(err) {
			result.Failures = append(result.Failures, resetFailure(failure))
		}
		if err != nil && logg != nil {
			logCtx := logg.WithFields(r.Context(), map[string]any{"reset_count": count, "failed_count": len(result.Failures)})
			logg.Warn(logCtx, "reset all quantities partially applied")
		}
		responses.WriteSuccess(w, result)
	}
}

func resetFailure(err error) types.ResetFailure {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset failed")
	}
	return types.ResetFailure{Code: string(typed.Code()), Message: typed.PublicMessage()}
}

func SignboardHistory(svc ledger.HistoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListForEntity(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// AllHistory lists every entry newest first, including entries of deleted
// signboards.
func AllHistory(svc ledger.HistoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		entries, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func unavailable(msg string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, msg))
	}
}
