package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type ProfessionalRepository struct {
	DB *db.Postgres
}

func (r ProfessionalRepository) List(ctx context.Context, salonID int64, limit int) ([]domain.Professional, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, name, role, phone, email, commission_percent, online, active, created_at, updated_at
		FROM professionals
		WHERE deleted_at IS NULL AND salon_id=$1
		ORDER BY name ASC
		LIMIT $2
	`, salonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func (r ProfessionalRepository) Get(ctx context.Context, salonID, id int64) (*domain.Professional, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, salon_id, name, role, phone, email, commission_percent, online, active, created_at, updated_at
		FROM professionals
		WHERE id=$1 AND salon_id=$2 AND deleted_at IS NULL
	`, id, salonID)
	p, err := scanProfessional(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r ProfessionalRepository) Upsert(ctx context.Context, p domain.Professional) (*domain.Professional, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO professionals (id, salon_id, name, role, phone, email, commission_percent, online, active, created_at, updated_at)
		VALUES (COALESCE($1, nextval('professionals_id_seq')), $2,$3,$4,$5,$6,$7,$8,$9, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			role=EXCLUDED.role,
			phone=EXCLUDED.phone,
			email=EXCLUDED.email,
			commission_percent=EXCLUDED.commission_percent,
			online=EXCLUDED.online,
			active=EXCLUDED.active,
			updated_at=now(),
			deleted_at=NULL
		RETURNING id, salon_id, name, role, phone, email, commission_percent, online, active, created_at, updated_at
	`, nullableID(p.ID), p.SalonID, p.Name, p.Role, p.Phone, p.Email, p.CommissionPercent, p.Online, p.Active)
	return scanProfessional(row)
}

// SetOnline persists the availability toggle and returns the stored value,
// so a failed write never leaves the caller believing an optimistic flip.
func (r ProfessionalRepository) SetOnline(ctx context.Context, salonID, id int64, online bool) (bool, error) {
	var stored bool
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE professionals
		SET online=$1, updated_at=now()
		WHERE id=$2 AND salon_id=$3 AND deleted_at IS NULL
		RETURNING online
	`, online, id, salonID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return stored, err
}

func (r ProfessionalRepository) Delete(ctx context.Context, salonID, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE professionals SET deleted_at = now() WHERE id=$1 AND salon_id=$2`, id, salonID)
	return err
}

func scanProfessional(row interface {
	Scan(dest ...any) error
}) (*domain.Professional, error) {
	var p domain.Professional
	if err := row.Scan(
		&p.ID, &p.SalonID, &p.Name, &p.Role, &p.Phone, &p.Email,
		&p.CommissionPercent, &p.Online, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
