package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/server/authctx"
	"salonpos-backend/internal/service"
)

type fakeStore struct {
	finalized int
}

func (s *fakeStore) Preview(ctx context.Context, salonID, professionalID int64, from, to time.Time) (*domain.SettlementPreview, error) {
	return &domain.SettlementPreview{
		Lines: []domain.ServiceLine{
			{AppointmentID: 1, Date: from, ServiceName: "Corte",
				Gross:      decimal.RequireFromString("30.00"),
				Fee:        decimal.RequireFromString("1.25"),
				Commission: decimal.RequireFromString("3.75"),
				Net:        decimal.RequireFromString("25.00")},
		},
		Advances: []domain.Advance{
			{ID: 11, Value: decimal.RequireFromString("10.00"), Note: "vale"},
		},
	}, nil
}

func (s *fakeStore) Finalize(ctx context.Context, in domain.ClosureFinalization) (*domain.ClosureResult, error) {
	s.finalized++
	return &domain.ClosureResult{ID: 7, NetTotal: in.NetTotal, PayableTotal: in.PayableTotal, ClosedAt: time.Now()}, nil
}

func newClosureRouter(store *fakeStore) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewClosureService(store, nil, logger, time.Second)
	h := ClosureHandler{Service: svc}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := authctx.WithCurrentUser(req.Context(), authctx.CurrentUser{
		ID: 1, SalonID: 1, Name: "Ana", Role: domain.RoleManager,
	})
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestClosureFlow(t *testing.T) {
	store := &fakeStore{}
	router := newClosureRouter(store)

	// preview
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/preview",
		`{"professionalId":10,"dateFrom":"2026-08-01","dateTo":"2026-08-31"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	sessionID, _ := data["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("preview returned no sessionId")
	}
	totals, _ := data["totals"].(map[string]any)
	if got := totals["payable"]; got != "15.00" {
		t.Errorf("payable = %v, want 15.00", got)
	}

	// deselect the advance
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/sessions/"+sessionID+"/advances/11/toggle", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	data = decodeData(t, rec)
	if got := data["payable"]; got != "25.00" {
		t.Errorf("payable after toggle = %v, want 25.00", got)
	}

	// confirm
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/sessions/"+sessionID+"/confirm", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.finalized != 1 {
		t.Errorf("finalize calls = %d, want 1", store.finalized)
	}

	// duplicate confirm is a conflict and never reaches the store
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/sessions/"+sessionID+"/confirm", ""))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate confirm status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if store.finalized != 1 {
		t.Errorf("finalize calls after duplicate = %d, want 1", store.finalized)
	}
}

func TestClosurePreviewMissingSelection(t *testing.T) {
	router := newClosureRouter(&fakeStore{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/preview", `{"professionalId":0}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestClosureUnknownSession(t *testing.T) {
	router := newClosureRouter(&fakeStore{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/cash-closures/sessions/nope/confirm", ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestClosureUnauthorized(t *testing.T) {
	router := newClosureRouter(&fakeStore{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cash-closures/preview", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
