package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"salonpos-backend/internal/domain"
	"salonpos-backend/internal/reconciliation"
	"salonpos-backend/internal/repository"
	"salonpos-backend/internal/server/authctx"
	"salonpos-backend/internal/service"
)

// ClosureHandler exposes the cash-closure reconciliation flow: the preview
// search, the advance toggles, the one-shot confirm, and the history with
// its settlement export.
type ClosureHandler struct {
	Service *service.ClosureService
	Repo    repository.ClosureRepository
}

func (h ClosureHandler) RegisterRoutes(r chi.Router) {
	r.Post("/cash-closures/preview", h.preview)
	r.Get("/cash-closures/sessions/{id}", h.session)
	r.Post("/cash-closures/sessions/{id}/advances/{advanceID}/toggle", h.toggle)
	r.Post("/cash-closures/sessions/{id}/confirm", h.confirm)
	r.Get("/cash-closures", h.list)
	r.Get("/cash-closures/{id}", h.get)
	r.Get("/cash-closures/{id}/export", h.export)
}

func (h ClosureHandler) preview(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		SessionID      string `json:"sessionId"`
		ProfessionalID int64  `json:"professionalId"`
		DateFrom       string `json:"dateFrom"`
		DateTo         string `json:"dateTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sess, err := h.Service.Preview(r.Context(), salonID, req.SessionID,
		req.ProfessionalID, parseDate(req.DateFrom), parseDate(req.DateTo))
	if err != nil {
		writeError(w, closureStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(sess))
}

func (h ClosureHandler) session(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSalon(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.Service.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(sess))
}

func (h ClosureHandler) toggle(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSalon(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	advanceID, err := strconv.ParseInt(chi.URLParam(r, "advanceID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid advance id")
		return
	}
	totals, err := h.Service.Toggle(chi.URLParam(r, "id"), advanceID)
	if err != nil {
		writeError(w, closureStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, totalsPayload(totals))
}

func (h ClosureHandler) confirm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSalon(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	closedBy := ""
	if user := authctx.FromContext(r.Context()); user != nil {
		closedBy = user.Name
	}
	result, err := h.Service.Confirm(r.Context(), chi.URLParam(r, "id"), closedBy)
	if err != nil {
		writeError(w, closureStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           result.ID,
		"netTotal":     result.NetTotal.StringFixed(2),
		"payableTotal": result.PayableTotal.StringFixed(2),
		"closedAt":     result.ClosedAt.Format(time.RFC3339),
	})
}

// closureStatus maps the engine's sentinel errors onto HTTP statuses. The
// duplicate-submit and already-closed guards are conflicts, not failures.
func closureStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingSelection),
		errors.Is(err, reconciliation.ErrNoPreview),
		errors.Is(err, reconciliation.ErrNothingToSettle),
		errors.Is(err, repository.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconciliation.ErrProcessing),
		errors.Is(err, reconciliation.ErrAlreadyClosed),
		errors.Is(err, reconciliation.ErrStalePreview):
		return http.StatusConflict
	case errors.Is(err, reconciliation.ErrConfirmTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, reconciliation.ErrUnknownAdvance):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func sessionPayload(sess *reconciliation.Session) map[string]any {
	snap := sess.Snapshot()
	lines := make([]map[string]any, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, map[string]any{
			"appointmentId": line.AppointmentID,
			"date":          line.Date.Format(dateLayout),
			"client":        derefString(line.ClientName),
			"service":       line.ServiceName,
			"gross":         line.Gross.StringFixed(2),
			"fee":           line.Fee.StringFixed(2),
			"commission":    line.Commission.StringFixed(2),
			"net":           line.Net.StringFixed(2),
		})
	}
	advances := make([]map[string]any, 0, len(snap.Advances))
	for _, adv := range snap.Advances {
		advances = append(advances, map[string]any{
			"id":       adv.ID,
			"value":    adv.Value.StringFixed(2),
			"note":     adv.Note,
			"date":     adv.CreatedAt.Format(dateLayout),
			"selected": snap.Selected.Has(adv.ID),
		})
	}
	return map[string]any{
		"sessionId":      sess.ID,
		"state":          string(snap.State),
		"professionalId": snap.ProfessionalID,
		"periodStart":    snap.PeriodStart.Format(dateLayout),
		"periodEnd":      snap.PeriodEnd.Format(dateLayout),
		"lines":          lines,
		"advances":       advances,
		"totals":         totalsPayload(snap.Totals),
	}
}

// Money is always rendered with two decimals; Decimal.String drops
// trailing zeros and would turn 15.00 into "15" on the wire.
func totalsPayload(t reconciliation.Totals) map[string]any {
	return map[string]any{
		"gross":             t.Gross.StringFixed(2),
		"fee":               t.Fee.StringFixed(2),
		"commission":        t.Commission.StringFixed(2),
		"netBeforeAdvances": t.NetBeforeAdvances.StringFixed(2),
		"advances":          t.Advances.StringFixed(2),
		"payable":           t.Payable.StringFixed(2),
	}
}

func (h ClosureHandler) list(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Repo.List(r.Context(), salonID, 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, c := range items {
		resp = append(resp, closurePayload(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ClosureHandler) get(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid closure id")
		return
	}
	closure, err := h.Repo.Get(r.Context(), salonID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "closure not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, closurePayload(*closure))
}

func closurePayload(c domain.CashClosure) map[string]any {
	return map[string]any{
		"id":              c.ID,
		"professionalId":  c.ProfessionalID,
		"professional":    c.Professional,
		"periodStart":     c.PeriodStart.Format(dateLayout),
		"periodEnd":       c.PeriodEnd.Format(dateLayout),
		"grossTotal":      c.GrossTotal.StringFixed(2),
		"feeTotal":        c.FeeTotal.StringFixed(2),
		"commissionTotal": c.CommissionTotal.StringFixed(2),
		"netTotal":        c.NetTotal.StringFixed(2),
		"advancesTotal":   c.AdvancesTotal.StringFixed(2),
		"payableTotal":    c.PayableTotal.StringFixed(2),
		"closedBy":        c.ClosedBy,
		"closedAt":        c.ClosedAt.Format(time.RFC3339),
	}
}

func (h ClosureHandler) export(w http.ResponseWriter, r *http.Request) {
	salonID, ok := currentSalon(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid closure id")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	closure, err := h.Repo.Get(r.Context(), salonID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "closure not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	lines, err := h.Repo.Lines(r.Context(), salonID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filenameSuffix := fmt.Sprintf("%s_%s", closure.PeriodStart.Format("20060102"), closure.PeriodEnd.Format("20060102"))

	switch format {
	case "csv":
		data, err := exportClosureCSV(*closure, lines)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"closure_%d_%s.csv\"", closure.ID, filenameSuffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportClosureXLSX(*closure, lines)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"closure_%d_%s.xlsx\"", closure.ID, filenameSuffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

func exportClosureCSV(c domain.CashClosure, lines []domain.ServiceLine) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"appointment_id", "date", "client", "service", "gross", "fee", "commission", "net"})
	for _, line := range lines {
		_ = w.Write([]string{
			strconv.FormatInt(line.AppointmentID, 10),
			line.Date.Format(dateLayout),
			derefString(line.ClientName),
			line.ServiceName,
			line.Gross.StringFixed(2),
			line.Fee.StringFixed(2),
			line.Commission.StringFixed(2),
			line.Net.StringFixed(2),
		})
	}
	_ = w.Write(nil)
	_ = w.Write([]string{"", "", "", "net_total", "", "", "", c.NetTotal.StringFixed(2)})
	_ = w.Write([]string{"", "", "", "advances_total", "", "", "", c.AdvancesTotal.StringFixed(2)})
	_ = w.Write([]string{"", "", "", "payable_total", "", "", "", c.PayableTotal.StringFixed(2)})
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportClosureXLSX(c domain.CashClosure, lines []domain.ServiceLine) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Closure"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"Appointment", "Date", "Client", "Service", "Gross", "Fee", "Commission", "Net"}
	for col, v := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	row := 2
	for _, line := range lines {
		values := []any{
			line.AppointmentID,
			line.Date.Format(dateLayout),
			derefString(line.ClientName),
			line.ServiceName,
			line.Gross.StringFixed(2),
			line.Fee.StringFixed(2),
			line.Commission.StringFixed(2),
			line.Net.StringFixed(2),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}
	row++
	totals := [][2]string{
		{"Net total", c.NetTotal.StringFixed(2)},
		{"Advances total", c.AdvancesTotal.StringFixed(2)},
		{"Payable total", c.PayableTotal.StringFixed(2)},
	}
	for _, t := range totals {
		labelCell, _ := excelize.CoordinatesToCellName(4, row)
		valueCell, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellValue(sheet, labelCell, t[0])
		_ = f.SetCellValue(sheet, valueCell, t[1])
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "D", 24)
	_ = f.SetColWidth(sheet, "E", "H", 14)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "H1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
