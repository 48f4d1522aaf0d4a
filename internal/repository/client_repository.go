package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type ClientRepository struct {
	DB *db.Postgres
}

func (r ClientRepository) List(ctx context.Context, salonID int64, limit int) ([]domain.Client, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, name, phone, email, notes, created_at, updated_at
		FROM clients
		WHERE deleted_at IS NULL AND salon_id=$1
		ORDER BY name ASC
		LIMIT $2
	`, salonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.SalonID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r ClientRepository) Upsert(ctx context.Context, c domain.Client) (*domain.Client, error) {
	var out domain.Client
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO clients (id, salon_id, name, phone, email, notes, created_at, updated_at)
		VALUES (COALESCE($1, nextval('clients_id_seq')), $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, phone=EXCLUDED.phone, email=EXCLUDED.email, notes=EXCLUDED.notes, updated_at=now(), deleted_at=NULL
		RETURNING id, salon_id, name, phone, email, notes, created_at, updated_at
	`, nullableID(c.ID), c.SalonID, c.Name, c.Phone, c.Email, c.Notes).Scan(&out.ID, &out.SalonID, &out.Name, &out.Phone, &out.Email, &out.Notes, &out.CreatedAt, &out.UpdatedAt)
	return &out, err
}

func (r ClientRepository) Delete(ctx context.Context, salonID, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE clients SET deleted_at = now() WHERE id=$1 AND salon_id=$2`, id, salonID)
	return err
}

func (r ClientRepository) Get(ctx context.Context, salonID, id int64) (*domain.Client, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, salon_id, name, phone, email, notes, created_at, updated_at
		FROM clients
		WHERE id=$1 AND salon_id=$2 AND deleted_at IS NULL
	`, id, salonID)
	var c domain.Client
	if err := row.Scan(&c.ID, &c.SalonID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
