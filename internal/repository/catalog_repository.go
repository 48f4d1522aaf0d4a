package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

// CatalogRepository stores the sellable items of a salon: services (with a
// duration) and retail products.
type CatalogRepository struct {
	DB *db.Postgres
}

func (r CatalogRepository) List(ctx context.Context, salonID int64, kind domain.CatalogKind) ([]domain.CatalogItem, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, kind, name, category, price, duration_minutes, active, created_at, updated_at
		FROM catalog_items
		WHERE deleted_at IS NULL AND salon_id=$1 AND ($2='' OR kind=$2)
		ORDER BY name ASC
	`, salonID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		it, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r CatalogRepository) GetByID(ctx context.Context, salonID, id int64) (*domain.CatalogItem, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, salon_id, kind, name, category, price, duration_minutes, active, created_at, updated_at
		FROM catalog_items
		WHERE id=$1 AND salon_id=$2 AND deleted_at IS NULL
	`, id, salonID)
	it, err := scanCatalogItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

func (r CatalogRepository) Save(ctx context.Context, it domain.CatalogItem) (*domain.CatalogItem, error) {
	if it.Kind == "" {
		it.Kind = domain.CatalogService
	}
	if it.ID == 0 {
		row := r.DB.Pool.QueryRow(ctx, `
			INSERT INTO catalog_items (salon_id, kind, name, category, price, duration_minutes, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7, now(), now())
			RETURNING id, salon_id, kind, name, category, price, duration_minutes, active, created_at, updated_at
		`, it.SalonID, string(it.Kind), it.Name, it.Category, it.Price, it.DurationMinutes, it.Active)
		return scanCatalogItem(row)
	}
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE catalog_items
		SET kind=$1, name=$2, category=$3, price=$4, duration_minutes=$5, active=$6, updated_at=now(), deleted_at=NULL
		WHERE id=$7 AND salon_id=$8
		RETURNING id, salon_id, kind, name, category, price, duration_minutes, active, created_at, updated_at
	`, string(it.Kind), it.Name, it.Category, it.Price, it.DurationMinutes, it.Active, it.ID, it.SalonID)
	out, err := scanCatalogItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r CatalogRepository) Delete(ctx context.Context, salonID, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE catalog_items SET deleted_at = now() WHERE id=$1 AND salon_id=$2`, id, salonID)
	return err
}

func scanCatalogItem(row interface {
	Scan(dest ...any) error
}) (*domain.CatalogItem, error) {
	var (
		it   domain.CatalogItem
		kind string
	)
	if err := row.Scan(&it.ID, &it.SalonID, &kind, &it.Name, &it.Category, &it.Price, &it.DurationMinutes, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Kind = domain.CatalogKind(kind)
	return &it, nil
}
