package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	"github.com/angelmondragon/signstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/signstock-backend/pkg/errors"
	"github.com/angelmondragon/signstock-backend/pkg/types"
)

func sampleSignboard() *signboards.SignboardDTO {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &signboards.SignboardDTO{
		ID:        uuid.New(),
		Comment:   "Road closed",
		Quantity:  4,
		Status:    enums.SignboardStatusInStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCreateSignboardSuccess(t *testing.T) {
	dto := sampleSignboard()
	var got signboards.CreateSignboardInput
	svc := stubSignboardService{createFn: func(_ context.Context, input signboards.CreateSignboardInput) (*signboards.SignboardDTO, error) {
		got = input
		return dto, nil
	}}

	body := `{"comment":"  Road closed ","quantity":4,"location":"depot"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/signboards", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateSignboard(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Comment != "Road closed" || got.Quantity == nil || *got.Quantity != 4 || got.Location != "depot" {
		t.Fatalf("unexpected input %+v", got)
	}
	var envelope struct {
		Data signboards.SignboardDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ID != dto.ID {
		t.Fatalf("expected id %s got %s", dto.ID, envelope.Data.ID)
	}
}

func TestCreateSignboardRejectsInvalidBody(t *testing.T) {
	svc := stubSignboardService{createFn: func(context.Context, signboards.CreateSignboardInput) (*signboards.SignboardDTO, error) {
		t.Fatalf("service should not be called")
		return nil, nil
	}}

	for name, body := range map[string]string{
		"missing comment":   `{"quantity":1}`,
		"negative quantity": `{"comment":"x","quantity":-2}`,
		"malformed":         `{"comment":`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CreateSignboard(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/signboards", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
		})
	}
}

func TestGetSignboardNotFound(t *testing.T) {
	svc := stubSignboardService{getFn: func(context.Context, uuid.UUID) (*signboards.SignboardDTO, error) {
		return nil, ledger.ErrNotFound
	}}

	rec := httptest.NewRecorder()
	GetSignboard(svc, nil).ServeHTTP(rec, requestWithID(http.MethodGet, "/api/v1/signboards/x", uuid.NewString(), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected code %s", apiErr.Code)
	}
}

func TestGetSignboardInvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	GetSignboard(stubSignboardService{}, nil).ServeHTTP(rec, requestWithID(http.MethodGet, "/api/v1/signboards/nope", "nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateSignboardRejectsQuantity(t *testing.T) {
	svc := stubSignboardService{updateFn: func(context.Context, uuid.UUID, signboards.UpdateSignboardInput) (*signboards.SignboardDTO, error) {
		t.Fatalf("service should not be called")
		return nil, nil
	}}

	rec := httptest.NewRecorder()
	req := requestWithID(http.MethodPut, "/api/v1/signboards/x", uuid.NewString(), strings.NewReader(`{"quantity":10}`))
	UpdateSignboard(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateSignboardPassesPatch(t *testing.T) {
	dto := sampleSignboard()
	var got signboards.UpdateSignboardInput
	svc := stubSignboardService{updateFn: func(_ context.Context, id uuid.UUID, input signboards.UpdateSignboardInput) (*signboards.SignboardDTO, error) {
		if id != dto.ID {
			t.Fatalf("unexpected id %s", id)
		}
		got = input
		return dto, nil
	}}

	rec := httptest.NewRecorder()
	req := requestWithID(http.MethodPut, "/api/v1/signboards/x", dto.ID.String(), strings.NewReader(`{"location":" yard 2 ","status":"in_use"}`))
	UpdateSignboard(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got.Location == nil || *got.Location != "yard 2" {
		t.Fatalf("expected sanitized location, got %+v", got.Location)
	}
	if got.Status == nil || *got.Status != enums.SignboardStatusInUse {
		t.Fatalf("expected status patch, got %+v", got.Status)
	}
	if got.Comment != nil {
		t.Fatalf("absent fields must stay nil")
	}
}

func TestDeleteSignboard(t *testing.T) {
	id := uuid.New()
	var deleted uuid.UUID
	svc := stubSignboardService{deleteFn: func(_ context.Context, got uuid.UUID) error {
		deleted = got
		return nil
	}}

	rec := httptest.NewRecorder()
	DeleteSignboard(svc, nil).ServeHTTP(rec, requestWithID(http.MethodDelete, "/api/v1/signboards/x", id.String(), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if deleted != id {
		t.Fatalf("expected delete of %s got %s", id, deleted)
	}
}

func TestDeleteAllSignboardsReturnsCount(t *testing.T) {
	svc := stubSignboardService{deleteAllFn: func(context.Context) (int64, error) { return 3, nil }}

	rec := httptest.NewRecorder()
	DeleteAllSignboards(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/signboards", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data types.CountResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Count != 3 {
		t.Fatalf("expected count 3 got %d", envelope.Data.Count)
	}
}

func TestListSignboards(t *testing.T) {
	svc := stubSignboardService{listFn: func(context.Context) ([]signboards.SignboardDTO, error) {
		return []signboards.SignboardDTO{*sampleSignboard(), *sampleSignboard()}, nil
	}}

	rec := httptest.NewRecorder()
	ListSignboards(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/signboards", nil))
	var envelope struct {
		Data []signboards.SignboardDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 signboards got %d", len(envelope.Data))
	}
}

func TestSignboardHandlersGuardNilService(t *testing.T) {
	rec := httptest.NewRecorder()
	ListSignboards(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/signboards", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
