package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/repository"
	"salonpos-backend/internal/server/authctx"
)

type ProfessionalHandler struct {
	Repo repository.ProfessionalRepository
}

func (h ProfessionalHandler) RegisterRoutes(r chi.Router) {
	r.Get("/professionals", h.list)
	r.Post("/professionals", h.save)
	r.Patch("/professionals/{id}/online", h.setOnline)
	r.Delete("/professionals/{id}", h.delete)
}

func (h ProfessionalHandler) list(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Repo.List(r.Context(), salonID, 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, p := range items {
		resp = append(resp, professionalPayload(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ProfessionalHandler) save(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		Role              string `json:"role"`
		Phone             string `json:"phone"`
		Email             string `json:"email"`
		CommissionPercent string `json:"commissionPercent"`
		Online            bool   `json:"online"`
		Active            bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	commission := decimal.Zero
	if req.CommissionPercent != "" {
		parsed, err := decimal.NewFromString(req.CommissionPercent)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid commissionPercent")
			return
		}
		commission = parsed
	}
	p, err := h.Repo.Upsert(r.Context(), domain.Professional{
		ID:                req.ID,
		SalonID:           salonID,
		Name:              req.Name,
		Role:              req.Role,
		Phone:             req.Phone,
		Email:             req.Email,
		CommissionPercent: commission,
		Online:            req.Online,
		Active:            req.Active,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, professionalPayload(*p))
}

func (h ProfessionalHandler) setOnline(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	stored, err := h.Repo.SetOnline(r.Context(), salonID, id, req.Online)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "professional not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The stored value is authoritative; callers roll back optimistic
	// flips from it.
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "online": stored})
}

func (h ProfessionalHandler) delete(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), salonID, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func professionalPayload(p domain.Professional) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"name":              p.Name,
		"role":              p.Role,
		"phone":             p.Phone,
		"email":             p.Email,
		"commissionPercent": p.CommissionPercent.String(),
		"online":            p.Online,
		"active":            p.Active,
	}
}

func currentSalon(r *http.Request) (int64, bool) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		return 0, false
	}
	return user.SalonID, true
}
