package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// AppointmentHandler records paid sales. The fee and commission split is
// computed here, once, at sale time; later settlement previews only read
// the stored values back.
type AppointmentHandler struct {
	Repo          repository.AppointmentRepository
	Professionals repository.ProfessionalRepository
	Settings      repository.SettingsRepository
}

func (h AppointmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sales", h.createSale)
	r.Get("/appointments", h.list)
}

type saleItemRequest struct {
	CatalogID *int64 `json:"catalogId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
}

type saleRequest struct {
	Date           string            `json:"date"`
	ClientID       *int64            `json:"clientId"`
	ClientName     string            `json:"clientName"`
	ProfessionalID int64             `json:"professionalId"`
	PaymentMethod  string            `json:"paymentMethod"`
	Items          []saleItemRequest `json:"items"`
}

func (h AppointmentHandler) createSale(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "sale needs at least one item")
		return
	}
	prof, err := h.Professionals.Get(r.Context(), salonID, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown professional")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings, err := h.Settings.Get(r.Context(), salonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := decimal.Zero
	items := make([]repository.CreateAppointmentItem, 0, len(req.Items))
	for _, it := range req.Items {
		gross, err := decimal.NewFromString(it.Price)
		if err != nil || gross.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid item price")
			return
		}
		fee := gross.Mul(settings.FeePercent).Div(hundred).Round(2)
		commission := gross.Mul(prof.CommissionPercent).Div(hundred).Round(2)
		items = append(items, repository.CreateAppointmentItem{
			CatalogID:  it.CatalogID,
			Name:       it.Name,
			Gross:      gross,
			Fee:        fee,
			Commission: commission,
			Net:        gross.Sub(fee).Sub(commission),
		})
		total = total.Add(gross)
	}

	appt, err := h.Repo.Create(r.Context(), repository.CreateAppointmentInput{
		SalonID:        salonID,
		Date:           parseDate(req.Date),
		ClientID:       req.ClientID,
		ClientName:     req.ClientName,
		ProfessionalID: prof.ID,
		Professional:   prof.Name,
		PaymentMethod:  req.PaymentMethod,
		Total:          total,
		Items:          items,
	}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	appts, err := h.Repo.List(r.Context(), salonID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appts)
}
