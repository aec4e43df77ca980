package controllers

import (
	"net/http"

	"github.com/angelmondragon/signstock-backend/api/responses"
	"github.com/angelmondragon/signstock-backend/api/validators"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/types"
)

const (
	maxCommentLength = 255
	maxTextLength    = 2000
)

type createSignboardRequest struct {
	Comment     string                 `json:"comment" validate:"required,notblank"`
	Quantity    *int                   `json:"quantity,omitempty" validate:"omitempty,min=0"`
	Status      *enums.SignboardStatus `json:"status,omitempty"`
	Description string                 `json:"description"`
	Size        string                 `json:"size"`
	Location    string                 `json:"location"`
	Notes       string                 `json:"notes"`
	ImagePath   string                 `json:"image_path"`
}

func (r createSignboardRequest) toInput() signboards.CreateSignboardInput {
	return signboards.CreateSignboardInput{
		Comment:     validators.SanitizeString(r.Comment, maxCommentLength),
		Quantity:    r.Quantity,
		Status:      r.Status,
		Description: validators.SanitizeString(r.Description, maxTextLength),
		Size:        validators.SanitizeString(r.Size, maxCommentLength),
		Location:    validators.SanitizeString(r.Location, maxCommentLength),
		Notes:       validators.SanitizeString(r.Notes, maxTextLength),
		ImagePath:   validators.SanitizeString(r.ImagePath, maxTextLength),
	}
}

// updateSignboardRequest has no quantity field. Sending one is rejected as an
// unknown field.
type updateSignboardRequest struct {
	Comment     *string                `json:"comment,omitempty"`
	Status      *enums.SignboardStatus `json:"status,omitempty"`
	Description *string                `json:"description,omitempty"`
	Size        *string                `json:"size,omitempty"`
	Location    *string                `json:"location,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
	ImagePath   *string                `json:"image_path,omitempty"`
}

func (r updateSignboardRequest) toInput() signboards.UpdateSignboardInput {
	return signboards.UpdateSignboardInput{
		Comment:     sanitizePtr(r.Comment, maxCommentLength),
		Status:      r.Status,
		Description: sanitizePtr(r.Description, maxTextLength),
		Size:        sanitizePtr(r.Size, maxCommentLength),
		Location:    sanitizePtr(r.Location, maxCommentLength),
		Notes:       sanitizePtr(r.Notes, maxTextLength),
		ImagePath:   sanitizePtr(r.ImagePath, maxTextLength),
	}
}

func sanitizePtr(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := validators.SanitizeString(*value, maxLen)
	return &clean
}

func ListSignboards(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CreateSignboard stores a new signboard and its opening ledger entry.
func CreateSignboard(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}

		var req createSignboardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func GetSignboard(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		signboard, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, signboard)
	}
}

func UpdateSignboard(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateSignboardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func DeleteSignboard(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteAllSignboards removes every signboard. History rows are kept.
func DeleteAllSignboards(svc signboards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signboard service unavailable"))
			return
		}
		count, err := svc.DeleteAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.CountResult{Count: count})
	}
}
