package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/repository"
)

type SettingsHandler struct {
	Repo            repository.SettingsRepository
	DefaultCurrency string
}

func (h SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.save)
}

func (h SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s, err := h.Repo.Get(r.Context(), salonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func (h SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		BusinessName    string `json:"businessName"`
		BusinessAddress string `json:"businessAddress"`
		BusinessPhone   string `json:"businessPhone"`
		CurrencyCode    string `json:"currencyCode"`
		FeePercent      string `json:"feePercent"`
		OpeningHour     int    `json:"openingHour"`
		ClosingHour     int    `json:"closingHour"`
		SlotMinutes     int    `json:"slotMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	feePercent, err := decimal.NewFromString(req.FeePercent)
	if err != nil || feePercent.IsNegative() || feePercent.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, http.StatusBadRequest, "feePercent must be between 0 and 100")
		return
	}
	if req.OpeningHour < 0 || req.ClosingHour > 24 || req.ClosingHour <= req.OpeningHour {
		writeError(w, http.StatusBadRequest, "invalid opening window")
		return
	}
	if req.SlotMinutes <= 0 || req.SlotMinutes > 120 {
		writeError(w, http.StatusBadRequest, "invalid slotMinutes")
		return
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = h.DefaultCurrency
	}
	s, err := h.Repo.Save(r.Context(), domain.Settings{
		SalonID:         salonID,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		BusinessPhone:   req.BusinessPhone,
		CurrencyCode:    req.CurrencyCode,
		FeePercent:      feePercent,
		OpeningHour:     req.OpeningHour,
		ClosingHour:     req.ClosingHour,
		SlotMinutes:     req.SlotMinutes,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func toSettingsResponse(s *domain.Settings) map[string]any {
	return map[string]any{
		"businessName":    s.BusinessName,
		"businessAddress": s.BusinessAddress,
		"businessPhone":   s.BusinessPhone,
		"currencyCode":    s.CurrencyCode,
		"feePercent":      s.FeePercent.String(),
		"openingHour":     s.OpeningHour,
		"closingHour":     s.ClosingHour,
		"slotMinutes":     s.SlotMinutes,
	}
}
