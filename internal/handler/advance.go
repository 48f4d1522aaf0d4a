package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/repository"
)

// AdvanceHandler manages the vale ledger: advances paid to professionals
// that a future cash closure may discount.
type AdvanceHandler struct {
	Repo repository.AdvanceRepository
}

func (h AdvanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/advances", h.list)
	r.Post("/advances", h.create)
}

func (h AdvanceHandler) list(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var professionalID *int64
	if raw := r.URL.Query().Get("professionalId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid professionalId")
			return
		}
		professionalID = &parsed
	}
	outstandingOnly := r.URL.Query().Get("outstanding") == "true"

	items, err := h.Repo.List(r.Context(), salonID, professionalID, outstandingOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, adv := range items {
		resp = append(resp, advancePayload(adv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h AdvanceHandler) create(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ProfessionalID int64  `json:"professionalId"`
		Value          string `json:"value"`
		Note           string `json:"note"`
		Date           string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ProfessionalID == 0 {
		writeError(w, http.StatusBadRequest, "professionalId is required")
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil || !value.IsPositive() {
		writeError(w, http.StatusBadRequest, "value must be a positive amount")
		return
	}
	adv, err := h.Repo.Create(r.Context(), repository.CreateAdvanceInput{
		SalonID:        salonID,
		ProfessionalID: req.ProfessionalID,
		Value:          value,
		Note:           req.Note,
		Date:           parseDate(req.Date),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, advancePayload(*adv))
}

func advancePayload(adv domain.Advance) map[string]any {
	return map[string]any{
		"id":             adv.ID,
		"professionalId": adv.ProfessionalID,
		"value":          adv.Value.StringFixed(2),
		"note":           adv.Note,
		"discounted":     adv.ClosureID != nil,
		"createdAt":      adv.CreatedAt.Format(dateLayout),
	}
}
