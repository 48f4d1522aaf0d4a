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
)

type CatalogHandler struct {
	Repo     repository.CatalogRepository
	Currency string
}

func (h CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.list)
	r.Post("/catalog", h.save)
	r.Delete("/catalog/{id}", h.delete)
}

func (h CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind := domain.CatalogKind(r.URL.Query().Get("kind"))
	items, err := h.Repo.List(r.Context(), salonID, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, it := range items {
		resp = append(resp, catalogPayload(it, h.Currency))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h CatalogHandler) save(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ID              int64  `json:"id"`
		Kind            string `json:"kind"`
		Name            string `json:"name"`
		Category        string `json:"category"`
		Price           string `json:"price"`
		DurationMinutes int    `json:"durationMinutes"`
		Active          bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	it, err := h.Repo.Save(r.Context(), domain.CatalogItem{
		ID:              req.ID,
		SalonID:         salonID,
		Kind:            domain.CatalogKind(req.Kind),
		Name:            req.Name,
		Category:        req.Category,
		Price:           price,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "catalog item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, catalogPayload(*it, h.Currency))
}

func (h CatalogHandler) delete(w http.ResponseWriter, r *http.Request) {
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

func catalogPayload(it domain.CatalogItem, currency string) map[string]any {
	return map[string]any{
		"id":              it.ID,
		"kind":            string(it.Kind),
		"name":            it.Name,
		"category":        it.Category,
		"price":           it.Price.StringFixed(2),
		"currency":        currency,
		"durationMinutes": it.DurationMinutes,
		"active":          it.Active,
	}
}
