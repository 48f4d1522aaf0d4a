package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/ports"
	"salonpos-backend/internal/reconciliation"
	"salonpos-backend/internal/repository"
)

var (
	ErrMissingSelection = errors.New("professional and period are required")
	ErrSessionNotFound  = errors.New("reconciliation session not found")
)

var (
	previewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salonpos_closure_previews_total",
		Help: "Total closure previews served",
	})
	closuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salonpos_closures_total",
		Help: "Total closure confirmations by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(previewsTotal, closuresTotal)
}

// Abandoned screens never tell the server they are gone, so sessions
// idle past the TTL are dropped, and the map is hard-capped as a
// backstop against a client minting sessions in a loop.
const (
	sessionTTL  = time.Hour
	maxSessions = 1024
)

type sessionEntry struct {
	sess     *reconciliation.Session
	lastSeen time.Time
}

// ClosureService runs the cash-closure reconciliation engine: it keeps the
// per-screen sessions, fetches previews from the settlement store, and
// drives the one-shot confirmation.
type ClosureService struct {
	Store          ports.SettlementStore
	Notifications  *repository.NotificationRepository
	Logger         *slog.Logger
	ConfirmTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewClosureService(store ports.SettlementStore, notifications *repository.NotificationRepository, logger *slog.Logger, confirmTimeout time.Duration) *ClosureService {
	return &ClosureService{
		Store:          store,
		Notifications:  notifications,
		Logger:         logger,
		ConfirmTimeout: confirmTimeout,
		sessions:       map[string]*sessionEntry{},
	}
}

// Preview fetches a settlement preview into the session identified by
// sessionID, creating a new session when the ID is empty or unknown.
// Missing professional or period never reaches the store. A fetch that
// loses the race to a newer one on the same session is discarded.
func (s *ClosureService) Preview(ctx context.Context, salonID int64, sessionID string, professionalID int64, from, to time.Time) (*reconciliation.Session, error) {
	if professionalID == 0 || from.IsZero() || to.IsZero() {
		return nil, ErrMissingSelection
	}

	sess := s.lookup(sessionID)
	if sess == nil {
		sess = reconciliation.NewSession(salonID)
		s.mu.Lock()
		s.evictStale(time.Now())
		s.sessions[sess.ID] = &sessionEntry{sess: sess, lastSeen: time.Now()}
		s.mu.Unlock()
	}

	gen := sess.BeginSearch(professionalID, from, to)
	preview, err := s.Store.Preview(ctx, salonID, professionalID, from, to)
	if err != nil {
		// Previously displayed data stays in the session.
		return nil, fmt.Errorf("fetch settlement preview: %w", err)
	}
	lines := make([]domain.ServiceLine, len(preview.Lines))
	for i, line := range preview.Lines {
		line.Date = truncateToDay(line.Date)
		lines[i] = line
	}
	if err := sess.ApplyPreview(gen, lines, preview.Advances); err != nil {
		return nil, err
	}
	previewsTotal.Inc()
	return sess, nil
}

// Toggle flips one advance in the session's discount set.
func (s *ClosureService) Toggle(sessionID string, advanceID int64) (reconciliation.Totals, error) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return reconciliation.Totals{}, ErrSessionNotFound
	}
	return sess.Toggle(advanceID)
}

// Session returns the session for rendering.
func (s *ClosureService) Session(sessionID string) (*reconciliation.Session, error) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Confirm runs the one-shot finalize for a session's current preview.
func (s *ClosureService) Confirm(ctx context.Context, sessionID, closedBy string) (*domain.ClosureResult, error) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	result, err := sess.Confirm(ctx, s.ConfirmTimeout, func(ctx context.Context, req reconciliation.FinalizeRequest) (*domain.ClosureResult, error) {
		return s.Store.Finalize(ctx, domain.ClosureFinalization{
			SalonID:         req.SalonID,
			ProfessionalID:  req.ProfessionalID,
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			AdvanceIDs:      req.AdvanceIDs,
			GrossTotal:      req.Totals.Gross,
			FeeTotal:        req.Totals.Fee,
			CommissionTotal: req.Totals.Commission,
			NetTotal:        req.Totals.NetBeforeAdvances,
			AdvancesTotal:   req.Totals.Advances,
			PayableTotal:    req.Totals.Payable,
			IdempotencyKey:  req.IdempotencyKey,
			ClosedBy:        closedBy,
		})
	})
	if err != nil {
		closuresTotal.WithLabelValues("failure").Inc()
		s.Logger.Warn("cash closure failed", "session", sessionID, "err", err)
		return nil, err
	}

	closuresTotal.WithLabelValues("success").Inc()
	s.Logger.Info("cash closure finalized", "session", sessionID, "closure_id", result.ID, "payable", result.PayableTotal)
	if s.Notifications != nil {
		snap := sess.Snapshot()
		_, nErr := s.Notifications.Create(ctx, repository.CreateNotificationInput{
			SalonID: snap.SalonID,
			Title:   "Fechamento de caixa",
			Message: fmt.Sprintf("Closure #%d finalized, payable %s", result.ID, result.PayableTotal.StringFixed(2)),
			Type:    domain.NotificationInfo,
		})
		if nErr != nil {
			s.Logger.Warn("closure notification failed", "closure_id", result.ID, "err", nErr)
		}
	}
	return result, nil
}

func (s *ClosureService) lookup(sessionID string) *reconciliation.Session {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	entry.lastSeen = time.Now()
	return entry.sess
}

// evictStale must be called with s.mu held. It drops sessions idle past
// the TTL, then the least recently used ones while the map is over cap.
func (s *ClosureService) evictStale(now time.Time) {
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > sessionTTL {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) >= maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, entry := range s.sessions {
			if oldestID == "" || entry.lastSeen.Before(oldest) {
				oldestID = id
				oldest = entry.lastSeen
			}
		}
		delete(s.sessions, oldestID)
	}
}

// truncateToDay drops the time-of-day component; settlement periods are
// date-granular.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
