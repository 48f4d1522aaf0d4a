package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type AdvanceRepository struct {
	DB *db.Postgres
}

type CreateAdvanceInput struct {
	SalonID        int64
	ProfessionalID int64
	Value          decimal.Decimal
	Note           string
	Date           time.Time
}

func (r AdvanceRepository) Create(ctx context.Context, in CreateAdvanceInput) (*domain.Advance, error) {
	createdAt := in.Date
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var adv domain.Advance
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO advances (salon_id, professional_id, value, note, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, salon_id, professional_id, value, note, closure_id, created_at
	`, in.SalonID, in.ProfessionalID, in.Value, in.Note, createdAt).Scan(
		&adv.ID, &adv.SalonID, &adv.ProfessionalID, &adv.Value, &adv.Note, &adv.ClosureID, &adv.CreatedAt,
	)
	return &adv, err
}

// List returns advances for a salon, optionally restricted to one
// professional. outstandingOnly drops advances already consumed by a
// finalized closure.
func (r AdvanceRepository) List(ctx context.Context, salonID int64, professionalID *int64, outstandingOnly bool) ([]domain.Advance, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, professional_id, value, note, closure_id, created_at
		FROM advances
		WHERE deleted_at IS NULL AND salon_id=$1
		  AND ($2::bigint IS NULL OR professional_id=$2)
		  AND (NOT $3 OR closure_id IS NULL)
		ORDER BY created_at DESC, id DESC
	`, salonID, professionalID, outstandingOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Advance
	for rows.Next() {
		var adv domain.Advance
		if err := rows.Scan(&adv.ID, &adv.SalonID, &adv.ProfessionalID, &adv.Value, &adv.Note, &adv.ClosureID, &adv.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, adv)
	}
	return items, rows.Err()
}
