package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonpos-backend/internal/domain"
)

func previewedSession(t *testing.T) *Session {
	t.Helper()
	sess := NewSession(1)
	gen := sess.BeginSearch(10, day("2026-08-01"), day("2026-08-31"))
	if err := sess.ApplyPreview(gen, sampleLines(), sampleAdvances()); err != nil {
		t.Fatalf("ApplyPreview: %v", err)
	}
	return sess
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func okFinalizer(calls *int, captured *FinalizeRequest) Finalizer {
	return func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
		*calls++
		if captured != nil {
			*captured = req
		}
		return &domain.ClosureResult{ID: 99, NetTotal: req.Totals.NetBeforeAdvances, PayableTotal: req.Totals.Payable, ClosedAt: time.Now()}, nil
	}
}

func TestConfirmWithoutPreview(t *testing.T) {
	sess := NewSession(1)
	calls := 0
	_, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, nil))
	if !errors.Is(err, ErrNoPreview) {
		t.Errorf("Confirm err = %v, want ErrNoPreview", err)
	}
	if calls != 0 {
		t.Errorf("finalizer called %d times, want 0", calls)
	}
}

func TestConfirmEmptyPreview(t *testing.T) {
	sess := NewSession(1)
	gen := sess.BeginSearch(10, day("2026-08-01"), day("2026-08-31"))
	if err := sess.ApplyPreview(gen, nil, nil); err != nil {
		t.Fatalf("ApplyPreview: %v", err)
	}
	calls := 0
	_, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, nil))
	if !errors.Is(err, ErrNothingToSettle) {
		t.Errorf("Confirm err = %v, want ErrNothingToSettle", err)
	}
	if calls != 0 {
		t.Errorf("finalizer called %d times, want 0", calls)
	}
}

func TestConfirmSuccessClosesTerminally(t *testing.T) {
	sess := previewedSession(t)
	calls := 0
	var req FinalizeRequest

	result, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, &req))
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.ID != 99 {
		t.Errorf("result.ID = %d, want 99", result.ID)
	}
	if calls != 1 {
		t.Errorf("finalizer called %d times, want 1", calls)
	}
	if req.ProfessionalID != 10 {
		t.Errorf("ProfessionalID = %d, want 10", req.ProfessionalID)
	}
	if got, want := len(req.AdvanceIDs), 2; got != want {
		t.Errorf("len(AdvanceIDs) = %d, want %d", got, want)
	}
	if !req.Totals.Payable.Equal(dec("34.75")) {
		t.Errorf("Payable = %v, want 34.75", req.Totals.Payable)
	}
	if req.IdempotencyKey == "" {
		t.Error("IdempotencyKey is empty")
	}

	// terminal for this preview
	_, err = sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, nil))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("second Confirm err = %v, want ErrAlreadyClosed", err)
	}
	if calls != 1 {
		t.Errorf("finalizer called %d times after duplicate, want 1", calls)
	}
	if snap := sess.Snapshot(); snap.State != StateClosed {
		t.Errorf("state = %v, want closed", snap.State)
	}
}

func TestDuplicateSubmitWhileProcessing(t *testing.T) {
	sess := previewedSession(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := sess.Confirm(context.Background(), time.Minute, func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
			close(entered)
			<-release
			return &domain.ClosureResult{ID: 1}, nil
		})
		done <- err
	}()

	<-entered
	calls := 0
	_, err := sess.Confirm(context.Background(), time.Minute, okFinalizer(&calls, nil))
	if !errors.Is(err, ErrProcessing) {
		t.Errorf("concurrent Confirm err = %v, want ErrProcessing", err)
	}
	if calls != 0 {
		t.Errorf("second finalizer called %d times, want 0", calls)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Confirm err = %v", err)
	}
}

func TestConfirmTimeoutRecoversToIdle(t *testing.T) {
	sess := previewedSession(t)

	_, err := sess.Confirm(context.Background(), 10*time.Millisecond, func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("Confirm err = %v, want ErrConfirmTimeout", err)
	}
	snap := sess.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
	if len(snap.Lines) == 0 {
		t.Error("preview lost after timeout")
	}

	// retry goes through with the same key, so the store can spot a replay
	var retry FinalizeRequest
	calls := 0
	if _, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, &retry)); err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if retry.IdempotencyKey == "" {
		t.Error("retry lost the idempotency key")
	}
}

func TestFinalizerErrorRecoversToIdle(t *testing.T) {
	sess := previewedSession(t)
	boom := errors.New("store down")

	_, err := sess.Confirm(context.Background(), time.Second, func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Confirm err = %v, want %v", err, boom)
	}
	if snap := sess.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
}

func TestStalePreviewDiscarded(t *testing.T) {
	sess := NewSession(1)
	oldGen := sess.BeginSearch(10, day("2026-08-01"), day("2026-08-15"))
	newGen := sess.BeginSearch(10, day("2026-08-01"), day("2026-08-31"))

	if err := sess.ApplyPreview(oldGen, sampleLines(), nil); err == nil || !errors.Is(err, ErrStalePreview) {
		t.Errorf("ApplyPreview(old) err = %v, want ErrStalePreview", err)
	}
	if err := sess.ApplyPreview(newGen, sampleLines(), sampleAdvances()); err != nil {
		t.Errorf("ApplyPreview(new): %v", err)
	}
	if snap := sess.Snapshot(); len(snap.Advances) != 2 {
		t.Errorf("advances = %d, want 2", len(snap.Advances))
	}
}

func TestNewPreviewReplacesSelectionWholesale(t *testing.T) {
	sess := previewedSession(t)
	if _, err := sess.Toggle(11); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	gen := sess.BeginSearch(10, day("2026-09-01"), day("2026-09-30"))
	fresh := []domain.Advance{{ID: 21, Value: dec("3.00")}}
	if err := sess.ApplyPreview(gen, sampleLines(), fresh); err != nil {
		t.Fatalf("ApplyPreview: %v", err)
	}

	snap := sess.Snapshot()
	if snap.Selected.Has(11) || snap.Selected.Has(12) {
		t.Error("old advance IDs leaked into new selection")
	}
	if !snap.Selected.Has(21) {
		t.Error("fresh advance not selected by default")
	}
}

func TestToggleValidation(t *testing.T) {
	sess := NewSession(1)
	if _, err := sess.Toggle(11); !errors.Is(err, ErrNoPreview) {
		t.Errorf("Toggle before preview err = %v, want ErrNoPreview", err)
	}

	sess = previewedSession(t)
	if _, err := sess.Toggle(999); !errors.Is(err, ErrUnknownAdvance) {
		t.Errorf("Toggle unknown err = %v, want ErrUnknownAdvance", err)
	}
	totals, err := sess.Toggle(12)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !totals.Payable.Equal(dec("40.75")) {
		t.Errorf("Payable after deselect = %v, want 40.75", totals.Payable)
	}
}

func TestConfirmSupersededByNewerSearchKeepsFreshPreview(t *testing.T) {
	sess := previewedSession(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	type confirmOutcome struct {
		result *domain.ClosureResult
		err    error
	}
	done := make(chan confirmOutcome, 1)

	go func() {
		result, err := sess.Confirm(context.Background(), time.Minute, func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
			close(entered)
			<-release
			return &domain.ClosureResult{ID: 1, ClosedAt: time.Now()}, nil
		})
		done <- confirmOutcome{result, err}
	}()

	<-entered
	gen := sess.BeginSearch(10, day("2026-09-01"), day("2026-09-30"))
	fresh := []domain.Advance{{ID: 21, Value: dec("3.00")}}
	if err := sess.ApplyPreview(gen, sampleLines(), fresh); err != nil {
		t.Fatalf("ApplyPreview: %v", err)
	}
	close(release)

	out := <-done
	if out.err != nil {
		t.Fatalf("superseded Confirm err = %v", out.err)
	}
	if out.result == nil || out.result.ID != 1 {
		t.Errorf("superseded Confirm result = %+v, want ID 1", out.result)
	}

	snap := sess.Snapshot()
	if snap.State == StateClosed {
		t.Error("newer preview marked closed by a superseded confirm")
	}
	if len(snap.Lines) == 0 || !snap.Selected.Has(21) {
		t.Error("fresh preview wiped by a superseded confirm")
	}
	if !snap.PeriodStart.Equal(day("2026-09-01")) {
		t.Errorf("PeriodStart = %v, want 2026-09-01", snap.PeriodStart)
	}

	// the newer preview remains confirmable on its own terms
	calls := 0
	var req FinalizeRequest
	if _, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, &req)); err != nil {
		t.Fatalf("Confirm of newer preview: %v", err)
	}
	if !req.PeriodStart.Equal(day("2026-09-01")) {
		t.Errorf("finalized PeriodStart = %v, want 2026-09-01", req.PeriodStart)
	}
}

func TestConfirmSupersededBeforePreviewArrivesUnsticksSession(t *testing.T) {
	sess := previewedSession(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := sess.Confirm(context.Background(), time.Minute, func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error) {
			close(entered)
			<-release
			return &domain.ClosureResult{ID: 1}, nil
		})
		done <- err
	}()

	<-entered
	// search issued, its preview not yet fetched
	gen := sess.BeginSearch(10, day("2026-09-01"), day("2026-09-30"))
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("superseded Confirm err = %v", err)
	}

	if snap := sess.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
	if err := sess.ApplyPreview(gen, sampleLines(), nil); err != nil {
		t.Errorf("ApplyPreview after superseded confirm: %v", err)
	}
}

func TestNewSearchReopensClosedSession(t *testing.T) {
	sess := previewedSession(t)
	calls := 0
	if _, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, nil)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	gen := sess.BeginSearch(10, day("2026-09-01"), day("2026-09-30"))
	if err := sess.ApplyPreview(gen, sampleLines(), nil); err != nil {
		t.Fatalf("ApplyPreview: %v", err)
	}
	if snap := sess.Snapshot(); snap.State != StateIdle {
		t.Errorf("state after new search = %v, want idle", snap.State)
	}
	if _, err := sess.Confirm(context.Background(), time.Second, okFinalizer(&calls, nil)); err != nil {
		t.Errorf("Confirm on reopened session: %v", err)
	}
	if calls != 2 {
		t.Errorf("finalizer called %d times, want 2", calls)
	}
}
