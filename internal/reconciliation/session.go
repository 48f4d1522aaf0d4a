package reconciliation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"salonpos-backend/internal/domain"
)

// State of the closure confirmation machine. Idle -> Processing -> Closed on
// success; failures return to Idle so the user can retry.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateClosed     State = "closed"
)

var (
	ErrNoPreview       = errors.New("no preview loaded")
	ErrNothingToSettle = errors.New("nothing to settle")
	ErrProcessing      = errors.New("confirmation already in progress")
	ErrAlreadyClosed   = errors.New("closure already confirmed for this preview")
	ErrUnknownAdvance  = errors.New("advance is not part of the current preview")
	ErrStalePreview    = errors.New("stale preview response discarded")
	ErrMissingPayload  = errors.New("finalize returned no result")
	ErrConfirmTimeout  = errors.New("confirmation timed out")
)

// FinalizeRequest carries everything the store needs to commit the
// settlement, assembled under the session lock so a concurrent search
// cannot skew it.
type FinalizeRequest struct {
	SalonID        int64
	ProfessionalID int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	AdvanceIDs     []int64
	Totals         Totals
	IdempotencyKey string
}

// Finalizer commits a settlement. The session calls it at most once per
// confirmed preview; the idempotency key lets the store reject a replay
// after a timeout whose request actually went through.
type Finalizer func(ctx context.Context, req FinalizeRequest) (*domain.ClosureResult, error)

// Session holds one reconciliation screen's state: the current preview, the
// advance selection, and the confirmation state machine. Safe for concurrent
// use.
type Session struct {
	mu sync.Mutex

	ID      string
	salonID int64

	professionalID int64
	periodStart    time.Time
	periodEnd      time.Time

	// gen rises on every search; a preview carrying an older gen lost the
	// race to a newer search and is discarded.
	gen uint64

	lines       []domain.ServiceLine
	advances    []domain.Advance
	selection   Selection
	hasSearched bool

	state  State
	key    string
	result *domain.ClosureResult
}

func NewSession(salonID int64) *Session {
	return &Session{
		ID:        uuid.NewString(),
		salonID:   salonID,
		selection: Selection{},
		state:     StateIdle,
	}
}

// BeginSearch marks a new preview fetch as in flight and returns its
// generation token. The searched flag and any terminal closed state are
// reset immediately so a stale "already closed" result cannot survive into
// the new query.
func (s *Session) BeginSearch(professionalID int64, from, to time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.professionalID = professionalID
	s.periodStart = from
	s.periodEnd = to
	s.hasSearched = false
	if s.state == StateClosed {
		s.state = StateIdle
		s.result = nil
	}
	return s.gen
}

// ApplyPreview installs fetched preview data for the given generation.
// Every offered advance starts selected. Previous lines, advances and
// selections are replaced wholesale, so IDs from an older preview can never
// leak into the new selection set.
func (s *Session) ApplyPreview(gen uint64, lines []domain.ServiceLine, advances []domain.Advance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrStalePreview
	}
	s.lines = lines
	s.advances = advances
	s.selection = SelectAll(advances)
	s.hasSearched = true
	s.state = StateIdle
	s.key = uuid.NewString()
	s.result = nil
	return nil
}

// Toggle flips one advance in or out of the discount set and returns the
// recomputed totals.
func (s *Session) Toggle(advanceID int64) (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSearched {
		return Totals{}, ErrNoPreview
	}
	known := false
	for _, adv := range s.advances {
		if adv.ID == advanceID {
			known = true
			break
		}
	}
	if !known {
		return Totals{}, ErrUnknownAdvance
	}
	s.selection.Toggle(advanceID)
	return Calculate(s.lines, s.advances, s.selection), nil
}

// CanConfirm reports whether a confirm attempt would pass the guard.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmGuard() == nil
}

func (s *Session) confirmGuard() error {
	switch s.state {
	case StateProcessing:
		return ErrProcessing
	case StateClosed:
		return ErrAlreadyClosed
	}
	if !s.hasSearched || s.salonID == 0 || s.professionalID == 0 {
		return ErrNoPreview
	}
	if len(s.lines) == 0 {
		return ErrNothingToSettle
	}
	return nil
}

// Confirm runs the one-shot finalize. The guard rejects duplicate submits
// and already-closed previews without touching the finalizer. The call is
// bounded by timeout; on expiry the session recovers to Idle with the
// preview intact. On success the session closes terminally for this preview
// and clears its data, forcing a fresh search before anything else happens.
func (s *Session) Confirm(ctx context.Context, timeout time.Duration, finalize Finalizer) (*domain.ClosureResult, error) {
	s.mu.Lock()
	if err := s.confirmGuard(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = StateProcessing
	// The confirm belongs to this preview generation. A newer search that
	// lands while finalize is in flight takes over the session; this
	// confirm must then leave the fresh preview untouched.
	gen := s.gen
	req := FinalizeRequest{
		SalonID:        s.salonID,
		ProfessionalID: s.professionalID,
		PeriodStart:    s.periodStart,
		PeriodEnd:      s.periodEnd,
		AdvanceIDs:     s.selection.IDs(),
		Totals:         Calculate(s.lines, s.advances, s.selection),
		IdempotencyKey: s.key,
	}
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, err := finalize(callCtx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.releaseProcessing(gen)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrConfirmTimeout
		}
		return nil, err
	}
	if result == nil {
		s.releaseProcessing(gen)
		return nil, ErrMissingPayload
	}
	if gen != s.gen {
		// Superseded: the settlement committed, the caller gets the
		// result, but the session now belongs to the newer preview.
		s.releaseProcessing(gen)
		return result, nil
	}
	s.state = StateClosed
	s.result = result
	s.lines = nil
	s.advances = nil
	s.selection = Selection{}
	s.hasSearched = false
	return result, nil
}

// releaseProcessing returns the state to Idle only while this confirm still
// owns it. After a newer search, ApplyPreview has already reset the state,
// and any Processing seen then belongs to the newer preview's confirm.
func (s *Session) releaseProcessing(gen uint64) {
	if gen == s.gen || (s.state == StateProcessing && !s.hasSearched) {
		s.state = StateIdle
	}
}

// Snapshot is a point-in-time copy of the session for rendering.
type Snapshot struct {
	SalonID        int64
	ProfessionalID int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Lines          []domain.ServiceLine
	Advances       []domain.Advance
	Selected       Selection
	HasSearched    bool
	State          State
	Totals         Totals
	Result         *domain.ClosureResult
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make(Selection, len(s.selection))
	for id := range s.selection {
		selected[id] = struct{}{}
	}
	return Snapshot{
		SalonID:        s.salonID,
		ProfessionalID: s.professionalID,
		PeriodStart:    s.periodStart,
		PeriodEnd:      s.periodEnd,
		Lines:          append([]domain.ServiceLine(nil), s.lines...),
		Advances:       append([]domain.Advance(nil), s.advances...),
		Selected:       selected,
		HasSearched:    s.hasSearched,
		State:          s.state,
		Totals:         Calculate(s.lines, s.advances, s.selection),
		Result:         s.result,
	}
}
