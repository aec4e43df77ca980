package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	"github.com/angelmondragon/signstock-backend/pkg/db/models"
)

type stubSignboardService struct {
	createFn    func(context.Context, signboards.CreateSignboardInput) (*signboards.SignboardDTO, error)
	getFn       func(context.Context, uuid.UUID) (*signboards.SignboardDTO, error)
	listFn      func(context.Context) ([]signboards.SignboardDTO, error)
	updateFn    func(context.Context, uuid.UUID, signboards.UpdateSignboardInput) (*signboards.SignboardDTO, error)
	deleteFn    func(context.Context, uuid.UUID) error
	deleteAllFn func(context.Context) (int64, error)
}

func (s stubSignboardService) Create(ctx context.Context, input signboards.CreateSignboardInput) (*signboards.SignboardDTO, error) {
	return s.createFn(ctx, input)
}

func (s stubSignboardService) Get(ctx context.Context, id uuid.UUID) (*signboards.SignboardDTO, error) {
	return s.getFn(ctx, id)
}

func (s stubSignboardService) List(ctx context.Context) ([]signboards.SignboardDTO, error) {
	return s.listFn(ctx)
}

func (s stubSignboardService) Update(ctx context.Context, id uuid.UUID, input signboards.UpdateSignboardInput) (*signboards.SignboardDTO, error) {
	return s.updateFn(ctx, id, input)
}

func (s stubSignboardService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s stubSignboardService) DeleteAll(ctx context.Context) (int64, error) {
	return s.deleteAllFn(ctx)
}

type stubLedgerService struct {
	applyFn     func(context.Context, uuid.UUID, ledger.Request) (*ledger.Result, error)
	increaseFn  func(context.Context, uuid.UUID, int, string) (*ledger.Result, error)
	decreaseFn  func(context.Context, uuid.UUID, int, string) (*ledger.Result, error)
	incrementFn func(context.Context, uuid.UUID, string) (*ledger.Result, error)
	decrementFn func(context.Context, uuid.UUID, string) (*ledger.Result, error)
	resetAllFn  func(context.Context, string) (int64, error)
}

func (s stubLedgerService) Apply(ctx context.Context, id uuid.UUID, req ledger.Request) (*ledger.Result, error) {
	return s.applyFn(ctx, id, req)
}

func (s stubLedgerService) Increase(ctx context.Context, id uuid.UUID, amount int, reason string) (*ledger.Result, error) {
	return s.increaseFn(ctx, id, amount, reason)
}

func (s stubLedgerService) Decrease(ctx context.Context, id uuid.UUID, amount int, reason string) (*ledger.Result, error) {
	return s.decreaseFn(ctx, id, amount, reason)
}

func (s stubLedgerService) Increment(ctx context.Context, id uuid.UUID, reason string) (*ledger.Result, error) {
	return s.incrementFn(ctx, id, reason)
}

func (s stubLedgerService) Decrement(ctx context.Context, id uuid.UUID, reason string) (*ledger.Result, error) {
	return s.decrementFn(ctx, id, reason)
}

func (s stubLedgerService) ResetAll(ctx context.Context, reason string) (int64, error) {
	return s.resetAllFn(ctx, reason)
}

func (stubLedgerService) RecordOpening(context.Context, *gorm.DB, *models.Signboard) error {
	return nil
}

type stubHistoryService struct {
	listAllFn       func(context.Context) ([]ledger.HistoryEntry, error)
	listForEntityFn func(context.Context, uuid.UUID) ([]ledger.HistoryEntry, error)
}

func (s stubHistoryService) ListAll(ctx context.Context) ([]ledger.HistoryEntry, error) {
	return s.listAllFn(ctx)
}

func (s stubHistoryService) ListForEntity(ctx context.Context, id uuid.UUID) ([]ledger.HistoryEntry, error) {
	return s.listForEntityFn(ctx, id)
}

func (stubHistoryService) Audit(context.Context) ([]ledger.Drift, error) {
	return nil, nil
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func requestWithID(method, target string, id string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
