package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type AppointmentRepository struct {
	DB *db.Postgres
}

type CreateAppointmentInput struct {
	SalonID        int64
	Date           time.Time
	ClientID       *int64
	ClientName     string
	ProfessionalID int64
	Professional   string
	PaymentMethod  string
	Total          decimal.Decimal
	Items          []CreateAppointmentItem
}

// CreateAppointmentItem holds the money split fixed at sale time. The
// reconciliation preview only ever sums these values.
type CreateAppointmentItem struct {
	CatalogID  *int64
	Name       string
	Gross      decimal.Decimal
	Fee        decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

func (r AppointmentRepository) Create(ctx context.Context, in CreateAppointmentInput, after func(context.Context, pgx.Tx) error) (*domain.Appointment, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	code := fmt.Sprintf("APT-%d", now.UnixNano()/1e6)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
		(salon_id, code, appointment_date, appointment_time, client_id, client_name, professional_id, professional_name,
		 payment_method, total, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now(), now())
		RETURNING id
	`, in.SalonID, code, date.Format("2006-01-02"), now.Format("15:04"), in.ClientID, in.ClientName,
		in.ProfessionalID, in.Professional, in.PaymentMethod, in.Total, domain.AppointmentPaid).Scan(&id)
	if err != nil {
		return nil, err
	}

	for _, item := range in.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_items (appointment_id, catalog_id, name, gross, fee, commission, net, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		`, id, item.CatalogID, item.Name, item.Gross, item.Fee, item.Commission, item.Net)
		if err != nil {
			return nil, err
		}
	}

	if after != nil {
		if err := after(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.Appointment{
		ID:             id,
		SalonID:        in.SalonID,
		Code:           code,
		Date:           date,
		Time:           now.Format("15:04"),
		ClientID:       in.ClientID,
		ClientName:     in.ClientName,
		ProfessionalID: in.ProfessionalID,
		Professional:   in.Professional,
		PaymentMethod:  in.PaymentMethod,
		Total:          in.Total,
		Status:         domain.AppointmentPaid,
		Items:          mapAppointmentItems(id, in.Items),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ScheduleAppointmentInput books an appointment ahead of time. No money
// split is fixed yet; that happens when the visit is paid.
type ScheduleAppointmentInput struct {
	SalonID        int64
	Date           time.Time
	Time           string
	ClientID       *int64
	ClientName     string
	ProfessionalID int64
	Professional   string
	Total          decimal.Decimal
	Items          []CreateAppointmentItem
}

func (r AppointmentRepository) Schedule(ctx context.Context, in ScheduleAppointmentInput) (*domain.Appointment, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	code := fmt.Sprintf("BKG-%d", now.UnixNano()/1e6)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
		(salon_id, code, appointment_date, appointment_time, client_id, client_name, professional_id, professional_name,
		 payment_method, total, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'',$9,$10, now(), now())
		RETURNING id
	`, in.SalonID, code, in.Date.Format("2006-01-02"), in.Time, in.ClientID, in.ClientName,
		in.ProfessionalID, in.Professional, in.Total, domain.AppointmentScheduled).Scan(&id)
	if err != nil {
		return nil, err
	}

	for _, item := range in.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_items (appointment_id, catalog_id, name, gross, fee, commission, net, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		`, id, item.CatalogID, item.Name, item.Gross, item.Fee, item.Commission, item.Net)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.Appointment{
		ID:             id,
		SalonID:        in.SalonID,
		Code:           code,
		Date:           in.Date,
		Time:           in.Time,
		ClientID:       in.ClientID,
		ClientName:     in.ClientName,
		ProfessionalID: in.ProfessionalID,
		Professional:   in.Professional,
		Total:          in.Total,
		Status:         domain.AppointmentScheduled,
		Items:          mapAppointmentItems(id, in.Items),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func mapAppointmentItems(appointmentID int64, items []CreateAppointmentItem) []domain.AppointmentItem {
	var out []domain.AppointmentItem
	for _, it := range items {
		out = append(out, domain.AppointmentItem{
			AppointmentID: appointmentID,
			CatalogID:     it.CatalogID,
			Name:          it.Name,
			Gross:         it.Gross,
			Fee:           it.Fee,
			Commission:    it.Commission,
			Net:           it.Net,
		})
	}
	return out
}

func (r AppointmentRepository) List(ctx context.Context, salonID int64, limit int) ([]domain.Appointment, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, code, appointment_date, appointment_time, client_id, client_name,
		       professional_id, professional_name, payment_method, total, status, created_at, updated_at
		FROM appointments
		WHERE deleted_at IS NULL AND salon_id=$1
		ORDER BY appointment_date DESC, id DESC
		LIMIT $2
	`, salonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []domain.Appointment
	var ids []int64
	for rows.Next() {
		var a domain.Appointment
		var status string
		var clientID pgtype.Int8
		if err := rows.Scan(
			&a.ID, &a.SalonID, &a.Code, &a.Date, &a.Time, &clientID, &a.ClientName,
			&a.ProfessionalID, &a.Professional, &a.PaymentMethod, &a.Total, &status, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if clientID.Valid {
			a.ClientID = &clientID.Int64
		}
		a.Status = domain.AppointmentStatus(status)
		ids = append(ids, a.ID)
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return appts, nil
	}

	itemRows, err := r.DB.Pool.Query(ctx, `
		SELECT appointment_id, id, catalog_id, name, gross, fee, commission, net, closure_id, created_at
		FROM appointment_items
		WHERE appointment_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	itemsByAppt := make(map[int64][]domain.AppointmentItem)
	for itemRows.Next() {
		var it domain.AppointmentItem
		var apptID int64
		var catalogID, closureID pgtype.Int8
		if err := itemRows.Scan(&apptID, &it.ID, &catalogID, &it.Name, &it.Gross, &it.Fee, &it.Commission, &it.Net, &closureID, &it.CreatedAt); err != nil {
			return nil, err
		}
		if catalogID.Valid {
			it.CatalogID = &catalogID.Int64
		}
		if closureID.Valid {
			it.ClosureID = &closureID.Int64
		}
		it.AppointmentID = apptID
		itemsByAppt[apptID] = append(itemsByAppt[apptID], it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	for i := range appts {
		appts[i].Items = itemsByAppt[appts[i].ID]
	}

	return appts, nil
}
