package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/booking"
	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/repository"
)

// WizardStore holds in-flight booking wizards keyed by session ID. State
// never leaves the server; clients only send actions.
type WizardStore struct {
	mu       sync.Mutex
	sessions map[string]booking.State
}

func NewWizardStore() *WizardStore {
	return &WizardStore{sessions: make(map[string]booking.State)}
}

func (s *WizardStore) create(date time.Time) (string, booking.State) {
	id := uuid.NewString()
	state := booking.NewState(date)
	s.mu.Lock()
	s.sessions[id] = state
	s.mu.Unlock()
	return id, state
}

func (s *WizardStore) get(id string) (booking.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	return state, ok
}

func (s *WizardStore) put(id string, state booking.State) {
	s.mu.Lock()
	s.sessions[id] = state
	s.mu.Unlock()
}

func (s *WizardStore) remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

type BookingHandler struct {
	Appointments  repository.AppointmentRepository
	Professionals repository.ProfessionalRepository
	Clients       repository.ClientRepository
	Catalog       repository.CatalogRepository
	Settings      repository.SettingsRepository
	Wizards       *WizardStore
}

func (h BookingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/bookings/wizard", h.start)
	r.Post("/bookings/wizard/{id}/actions", h.apply)
	r.Post("/bookings/wizard/{id}/finish", h.finish)
	r.Get("/bookings/slots", h.slots)
}

func (h BookingHandler) start(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSalon(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	// an empty body books for today
	_ = json.NewDecoder(r.Body).Decode(&req)
	date := parseDate(req.Date)
	if date.IsZero() {
		date = time.Now().Truncate(24 * time.Hour)
	}
	id, state := h.Wizards.create(date)
	h.writeState(w, r, id, state)
}

type wizardActionRequest struct {
	Type           string `json:"type"`
	ServiceID      int64  `json:"serviceId"`
	ProfessionalID int64  `json:"professionalId"`
	ClientID       *int64 `json:"clientId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Step           string `json:"step"`
}

func (h BookingHandler) apply(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSalon(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	state, ok := h.Wizards.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	var req wizardActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	action, err := toAction(state, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state = booking.Reduce(state, action)
	h.Wizards.put(id, state)
	h.writeState(w, r, id, state)
}

func toAction(state booking.State, req wizardActionRequest) (booking.Action, error) {
	switch req.Type {
	case "toggleService":
		return booking.ToggleService{ServiceID: req.ServiceID}, nil
	case "assignProfessional":
		return booking.AssignProfessional{ServiceID: req.ServiceID, ProfessionalID: req.ProfessionalID}, nil
	case "setClient":
		return booking.SetClient{ClientID: req.ClientID}, nil
	case "setDateTime":
		date := parseDate(req.Date)
		if date.IsZero() || req.Time == "" {
			return nil, errors.New("setDateTime needs date and time")
		}
		return booking.SetDateTime{Date: date, TimeSlot: req.Time}, nil
	case "goToStep":
		return booking.GoToStep{Step: booking.Step(req.Step)}, nil
	case "reset":
		return booking.Reset{Initial: booking.NewState(state.Date)}, nil
	}
	return nil, errors.New("unknown action type")
}

func (h BookingHandler) finish(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	state, found := h.Wizards.get(id)
	if !found {
		writeError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	if len(state.ServiceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no services selected")
		return
	}
	if state.TimeSlot == "" {
		writeError(w, http.StatusBadRequest, "no time slot chosen")
		return
	}
	professionalID, err := singleProfessional(state)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prof, err := h.Professionals.Get(r.Context(), salonID, professionalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown professional")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	clientName := ""
	if state.ClientID != nil {
		client, err := h.Clients.Get(r.Context(), salonID, *state.ClientID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if client != nil {
			clientName = client.Name
		}
	}

	services, err := h.Catalog.List(r.Context(), salonID, domain.CatalogService)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byID := make(map[int64]domain.CatalogItem, len(services))
	for _, it := range services {
		byID[it.ID] = it
	}
	total := decimal.Zero
	items := make([]repository.CreateAppointmentItem, 0, len(state.ServiceIDs))
	for _, serviceID := range state.ServiceIDs {
		it, ok := byID[serviceID]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown service in selection")
			return
		}
		catalogID := it.ID
		items = append(items, repository.CreateAppointmentItem{
			CatalogID: &catalogID,
			Name:      it.Name,
			Gross:     it.Price,
			Net:       it.Price,
		})
		total = total.Add(it.Price)
	}

	appt, err := h.Appointments.Schedule(r.Context(), repository.ScheduleAppointmentInput{
		SalonID:        salonID,
		Date:           state.Date,
		Time:           state.TimeSlot,
		ClientID:       state.ClientID,
		ClientName:     clientName,
		ProfessionalID: prof.ID,
		Professional:   prof.Name,
		Total:          total,
		Items:          items,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Wizards.remove(id)
	writeJSON(w, http.StatusOK, appt)
}

// singleProfessional enforces the one-professional-per-appointment model:
// every selected service must carry the same assignment.
func singleProfessional(state booking.State) (int64, error) {
	var chosen int64
	for _, serviceID := range state.ServiceIDs {
		profID, ok := state.ProfessionalByService[serviceID]
		if !ok {
			return 0, errors.New("every service needs an assigned professional")
		}
		if chosen == 0 {
			chosen = profID
			continue
		}
		if profID != chosen {
			return 0, errors.New("all services must share one professional")
		}
	}
	return chosen, nil
}

func (h BookingHandler) slots(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
	}
	settings, err := h.Settings.Get(r.Context(), salonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slots := booking.Slots(settings.OpeningHour, settings.ClosingHour, settings.SlotMinutes)
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (h BookingHandler) writeState(w http.ResponseWriter, r *http.Request, id string, state booking.State) {
	salonID, _ := currentSalon(r)
	var summary booking.Summary
	if services, err := h.Catalog.List(r.Context(), salonID, domain.CatalogService); err == nil {
		summary = booking.Summarize(state, services)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"state": map[string]any{
			"step":                  state.Step,
			"serviceIds":            state.ServiceIDs,
			"professionalByService": state.ProfessionalByService,
			"clientId":              state.ClientID,
			"date":                  state.Date.Format(dateLayout),
			"time":                  state.TimeSlot,
		},
		"summary": map[string]any{
			"totalPrice":      summary.TotalPrice.StringFixed(2),
			"durationMinutes": summary.DurationMinutes,
			"endTime":         summary.EndTime,
		},
	})
}
