package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/reconciliation"
)

type stubStore struct {
	preview     *domain.SettlementPreview
	previewErr  error
	finalized   []domain.ClosureFinalization
	finalizeErr error
}

func (s *stubStore) Preview(ctx context.Context, salonID, professionalID int64, from, to time.Time) (*domain.SettlementPreview, error) {
	if s.previewErr != nil {
		return nil, s.previewErr
	}
	return s.preview, nil
}

func (s *stubStore) Finalize(ctx context.Context, in domain.ClosureFinalization) (*domain.ClosureResult, error) {
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	s.finalized = append(s.finalized, in)
	return &domain.ClosureResult{ID: int64(len(s.finalized)), NetTotal: in.NetTotal, PayableTotal: in.PayableTotal, ClosedAt: time.Now()}, nil
}

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testPreview() *domain.SettlementPreview {
	return &domain.SettlementPreview{
		Lines: []domain.ServiceLine{
			{AppointmentID: 1, Date: time.Date(2026, 8, 3, 14, 30, 0, 0, time.UTC), ServiceName: "Corte",
				Gross: mustDec("30.00"), Fee: mustDec("1.25"), Commission: mustDec("3.75"), Net: mustDec("25.00")},
		},
		Advances: []domain.Advance{
			{ID: 11, Value: mustDec("10.00")},
		},
	}
}

func newTestService(store *stubStore) *ClosureService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClosureService(store, nil, logger, time.Second)
}

func TestPreviewRequiresSelection(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	_, err := svc.Preview(context.Background(), 1, "", 0, time.Now(), time.Now())
	if !errors.Is(err, ErrMissingSelection) {
		t.Errorf("err = %v, want ErrMissingSelection", err)
	}
	_, err = svc.Preview(context.Background(), 1, "", 10, time.Time{}, time.Now())
	if !errors.Is(err, ErrMissingSelection) {
		t.Errorf("err = %v, want ErrMissingSelection", err)
	}
}

func TestPreviewCreatesSessionAndTruncatesDates(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	sess, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	snap := sess.Snapshot()
	if len(snap.Lines) != 1 || len(snap.Advances) != 1 {
		t.Fatalf("lines=%d advances=%d, want 1 and 1", len(snap.Lines), len(snap.Advances))
	}
	if got := snap.Lines[0].Date; got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("line date not truncated to day: %v", got)
	}
	if !snap.Selected.Has(11) {
		t.Error("advance not selected by default")
	}

	// the same session is reused on a follow-up search
	again, err := svc.Preview(context.Background(), 1, sess.ID, 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("second Preview: %v", err)
	}
	if again.ID != sess.ID {
		t.Errorf("session ID changed across searches: %s vs %s", again.ID, sess.ID)
	}
}

func TestPreviewFetchFailureKeepsSessionUsable(t *testing.T) {
	store := &stubStore{preview: testPreview()}
	svc := newTestService(store)
	sess, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	store.previewErr = errors.New("db down")
	if _, err := svc.Preview(context.Background(), 1, sess.ID, 10, day("2026-08-01"), day("2026-08-31")); err == nil {
		t.Fatal("expected fetch error")
	}

	store.previewErr = nil
	if _, err := svc.Preview(context.Background(), 1, sess.ID, 10, day("2026-08-01"), day("2026-08-31")); err != nil {
		t.Errorf("Preview after recovery: %v", err)
	}
}

func TestConfirmPassesSelectionAndKey(t *testing.T) {
	store := &stubStore{preview: testPreview()}
	svc := newTestService(store)
	sess, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	result, err := svc.Confirm(context.Background(), sess.ID, "Ana")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !result.PayableTotal.Equal(mustDec("15.00")) {
		t.Errorf("PayableTotal = %v, want 15.00", result.PayableTotal)
	}
	if len(store.finalized) != 1 {
		t.Fatalf("finalize calls = %d, want 1", len(store.finalized))
	}
	in := store.finalized[0]
	if in.ClosedBy != "Ana" {
		t.Errorf("ClosedBy = %q, want Ana", in.ClosedBy)
	}
	if in.IdempotencyKey == "" {
		t.Error("IdempotencyKey is empty")
	}
	if len(in.AdvanceIDs) != 1 || in.AdvanceIDs[0] != 11 {
		t.Errorf("AdvanceIDs = %v, want [11]", in.AdvanceIDs)
	}

	if _, err := svc.Confirm(context.Background(), sess.ID, "Ana"); !errors.Is(err, reconciliation.ErrAlreadyClosed) {
		t.Errorf("duplicate Confirm err = %v, want ErrAlreadyClosed", err)
	}
	if len(store.finalized) != 1 {
		t.Errorf("finalize calls after duplicate = %d, want 1", len(store.finalized))
	}
}

func TestConfirmUnknownSession(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	if _, err := svc.Confirm(context.Background(), "nope", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.Toggle("nope", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Toggle err = %v, want ErrSessionNotFound", err)
	}
}

func TestToggleRecomputesTotals(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	sess, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	totals, err := svc.Toggle(sess.ID, 11)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !totals.Payable.Equal(mustDec("25.00")) {
		t.Errorf("Payable = %v, want 25.00", totals.Payable)
	}
}

func TestStaleSessionsEvicted(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	old, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	svc.mu.Lock()
	svc.sessions[old.ID].lastSeen = time.Now().Add(-2 * sessionTTL)
	svc.mu.Unlock()

	// a new session triggers the sweep
	if _, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31")); err != nil {
		t.Fatalf("second Preview: %v", err)
	}

	if _, err := svc.Toggle(old.ID, 11); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Toggle on evicted session err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionMapCapped(t *testing.T) {
	svc := newTestService(&stubStore{preview: testPreview()})
	for i := 0; i < maxSessions+5; i++ {
		if _, err := svc.Preview(context.Background(), 1, "", 10, day("2026-08-01"), day("2026-08-31")); err != nil {
			t.Fatalf("Preview %d: %v", i, err)
		}
	}
	svc.mu.Lock()
	n := len(svc.sessions)
	svc.mu.Unlock()
	if n > maxSessions {
		t.Errorf("sessions = %d, want at most %d", n, maxSessions)
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
