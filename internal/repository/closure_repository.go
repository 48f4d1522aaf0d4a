package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

// ClosureRepository owns settlement persistence: the repeatable preview and
// the finalize-once commit.
type ClosureRepository struct {
	DB *db.Postgres
}

// ErrEmptySettlement rejects a finalize that would cover no service lines.
var ErrEmptySettlement = errors.New("settlement covers no service lines")

// ErrInvalidPeriod rejects a preview or finalize whose period is inverted.
var ErrInvalidPeriod = errors.New("period start must not be after period end")

// Preview returns the professional's unsettled service lines in the period
// and every outstanding advance. Advances consumed by an earlier closure
// carry a closure_id and are filtered out here, never by a local cache.
func (r ClosureRepository) Preview(ctx context.Context, salonID, professionalID int64, from, to time.Time) (*domain.SettlementPreview, error) {
	if from.After(to) {
		return nil, ErrInvalidPeriod
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT a.id, a.appointment_date, NULLIF(a.client_name, ''), i.name, i.gross, i.fee, i.commission, i.net
		FROM appointment_items i
		JOIN appointments a ON a.id = i.appointment_id
		WHERE a.deleted_at IS NULL
		  AND a.salon_id = $1
		  AND a.professional_id = $2
		  AND a.status = 'paid'
		  AND a.appointment_date BETWEEN $3 AND $4
		  AND i.closure_id IS NULL
		ORDER BY a.appointment_date ASC, a.id ASC, i.id ASC
	`, salonID, professionalID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	preview := &domain.SettlementPreview{}
	for rows.Next() {
		var line domain.ServiceLine
		var clientName pgtype.Text
		if err := rows.Scan(&line.AppointmentID, &line.Date, &clientName, &line.ServiceName, &line.Gross, &line.Fee, &line.Commission, &line.Net); err != nil {
			return nil, err
		}
		if clientName.Valid {
			name := clientName.String
			line.ClientName = &name
		}
		preview.Lines = append(preview.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	advRows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, professional_id, value, note, closure_id, created_at
		FROM advances
		WHERE deleted_at IS NULL AND salon_id=$1 AND professional_id=$2 AND closure_id IS NULL
		ORDER BY created_at ASC, id ASC
	`, salonID, professionalID)
	if err != nil {
		return nil, err
	}
	defer advRows.Close()
	for advRows.Next() {
		var adv domain.Advance
		if err := advRows.Scan(&adv.ID, &adv.SalonID, &adv.ProfessionalID, &adv.Value, &adv.Note, &adv.ClosureID, &adv.CreatedAt); err != nil {
			return nil, err
		}
		preview.Advances = append(preview.Advances, adv)
	}
	return preview, advRows.Err()
}

// Finalize commits a settlement in one transaction: the closure row, the
// covered service lines, and the selected advances. A replayed idempotency
// key returns the already-stored closure instead of settling twice.
func (r ClosureRepository) Finalize(ctx context.Context, in domain.ClosureFinalization) (*domain.ClosureResult, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		id       int64
		closedAt time.Time
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO cash_closures
		(salon_id, professional_id, period_start, period_end, gross_total, fee_total, commission_total,
		 net_total, advances_total, payable_total, idempotency_key, closed_by, closed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
		RETURNING id, closed_at
	`, in.SalonID, in.ProfessionalID, in.PeriodStart.Format("2006-01-02"), in.PeriodEnd.Format("2006-01-02"),
		in.GrossTotal, in.FeeTotal, in.CommissionTotal, in.NetTotal, in.AdvancesTotal, in.PayableTotal,
		in.IdempotencyKey, in.ClosedBy).Scan(&id, &closedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return r.byIdempotencyKey(ctx, in.SalonID, in.IdempotencyKey)
		}
		return nil, err
	}

	// Covered lines are re-derived from the period at commit time. A sale
	// paid between preview and confirm falls inside the period and gets
	// settled here even though the stored totals come from the preview.
	ct, err := tx.Exec(ctx, `
		UPDATE appointment_items i
		SET closure_id=$1
		FROM appointments a
		WHERE a.id = i.appointment_id
		  AND a.deleted_at IS NULL
		  AND a.salon_id=$2
		  AND a.professional_id=$3
		  AND a.status='paid'
		  AND a.appointment_date BETWEEN $4 AND $5
		  AND i.closure_id IS NULL
	`, id, in.SalonID, in.ProfessionalID, in.PeriodStart.Format("2006-01-02"), in.PeriodEnd.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrEmptySettlement
	}

	if len(in.AdvanceIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE advances
			SET closure_id=$1
			WHERE id = ANY($2) AND salon_id=$3 AND professional_id=$4 AND closure_id IS NULL
		`, id, in.AdvanceIDs, in.SalonID, in.ProfessionalID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.ClosureResult{
		ID:           id,
		NetTotal:     in.NetTotal,
		PayableTotal: in.PayableTotal,
		ClosedAt:     closedAt,
	}, nil
}

func (r ClosureRepository) byIdempotencyKey(ctx context.Context, salonID int64, key string) (*domain.ClosureResult, error) {
	var res domain.ClosureResult
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT id, net_total, payable_total, closed_at
		FROM cash_closures
		WHERE salon_id=$1 AND idempotency_key=$2
	`, salonID, key).Scan(&res.ID, &res.NetTotal, &res.PayableTotal, &res.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r ClosureRepository) List(ctx context.Context, salonID int64, limit int) ([]domain.CashClosure, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT c.id, c.salon_id, c.professional_id, COALESCE(p.name, ''), c.period_start, c.period_end,
		       c.gross_total, c.fee_total, c.commission_total, c.net_total, c.advances_total, c.payable_total,
		       c.idempotency_key, c.closed_by, c.closed_at
		FROM cash_closures c
		LEFT JOIN professionals p ON p.id = c.professional_id
		WHERE c.salon_id=$1
		ORDER BY c.closed_at DESC, c.id DESC
		LIMIT $2
	`, salonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CashClosure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r ClosureRepository) Get(ctx context.Context, salonID, id int64) (*domain.CashClosure, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT c.id, c.salon_id, c.professional_id, COALESCE(p.name, ''), c.period_start, c.period_end,
		       c.gross_total, c.fee_total, c.commission_total, c.net_total, c.advances_total, c.payable_total,
		       c.idempotency_key, c.closed_by, c.closed_at
		FROM cash_closures c
		LEFT JOIN professionals p ON p.id = c.professional_id
		WHERE c.id=$1 AND c.salon_id=$2
	`, id, salonID)
	c, err := scanClosure(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Lines returns the service lines covered by a finalized closure, for the
// settlement export.
func (r ClosureRepository) Lines(ctx context.Context, salonID, closureID int64) ([]domain.ServiceLine, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT a.id, a.appointment_date, NULLIF(a.client_name, ''), i.name, i.gross, i.fee, i.commission, i.net
		FROM appointment_items i
		JOIN appointments a ON a.id = i.appointment_id
		WHERE i.closure_id=$1 AND a.salon_id=$2
		ORDER BY a.appointment_date ASC, a.id ASC, i.id ASC
	`, closureID, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.ServiceLine
	for rows.Next() {
		var line domain.ServiceLine
		var clientName pgtype.Text
		if err := rows.Scan(&line.AppointmentID, &line.Date, &clientName, &line.ServiceName, &line.Gross, &line.Fee, &line.Commission, &line.Net); err != nil {
			return nil, err
		}
		if clientName.Valid {
			name := clientName.String
			line.ClientName = &name
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanClosure(row interface {
	Scan(dest ...any) error
}) (*domain.CashClosure, error) {
	var c domain.CashClosure
	if err := row.Scan(
		&c.ID, &c.SalonID, &c.ProfessionalID, &c.Professional, &c.PeriodStart, &c.PeriodEnd,
		&c.GrossTotal, &c.FeeTotal, &c.CommissionTotal, &c.NetTotal, &c.AdvancesTotal, &c.PayableTotal,
		&c.IdempotencyKey, &c.ClosedBy, &c.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
