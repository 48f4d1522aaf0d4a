package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type SettingsRepository struct {
	DB *db.Postgres
}

// DefaultSettings is what a salon gets before anything was ever saved:
// a 10:00 to 18:00 booking window on a 15-minute grid, no card fee.
func DefaultSettings(salonID int64) *domain.Settings {
	return &domain.Settings{
		SalonID:      salonID,
		CurrencyCode: "BRL",
		FeePercent:   decimal.Zero,
		OpeningHour:  10,
		ClosingHour:  18,
		SlotMinutes:  15,
	}
}

// Get never fails on a salon that has not saved settings yet; it falls
// back to DefaultSettings so dependent flows keep working.
func (r SettingsRepository) Get(ctx context.Context, salonID int64) (*domain.Settings, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT salon_id, business_name, business_address, business_phone, currency_code,
		       fee_percent, opening_hour, closing_hour, slot_minutes, updated_at
		FROM settings
		WHERE salon_id=$1
	`, salonID)
	var s domain.Settings
	if err := row.Scan(
		&s.SalonID, &s.BusinessName, &s.BusinessAddress, &s.BusinessPhone, &s.CurrencyCode,
		&s.FeePercent, &s.OpeningHour, &s.ClosingHour, &s.SlotMinutes, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultSettings(salonID), nil
		}
		return nil, err
	}
	return &s, nil
}

func (r SettingsRepository) Save(ctx context.Context, s domain.Settings) (*domain.Settings, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO settings (salon_id, business_name, business_address, business_phone, currency_code,
		                      fee_percent, opening_hour, closing_hour, slot_minutes, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
		ON CONFLICT (salon_id) DO UPDATE SET
			business_name=EXCLUDED.business_name,
			business_address=EXCLUDED.business_address,
			business_phone=EXCLUDED.business_phone,
			currency_code=EXCLUDED.currency_code,
			fee_percent=EXCLUDED.fee_percent,
			opening_hour=EXCLUDED.opening_hour,
			closing_hour=EXCLUDED.closing_hour,
			slot_minutes=EXCLUDED.slot_minutes,
			updated_at=now()
		RETURNING salon_id, business_name, business_address, business_phone, currency_code,
		          fee_percent, opening_hour, closing_hour, slot_minutes, updated_at
	`, s.SalonID, s.BusinessName, s.BusinessAddress, s.BusinessPhone, s.CurrencyCode,
		s.FeePercent, s.OpeningHour, s.ClosingHour, s.SlotMinutes).Scan(
		&s.SalonID, &s.BusinessName, &s.BusinessAddress, &s.BusinessPhone, &s.CurrencyCode,
		&s.FeePercent, &s.OpeningHour, &s.ClosingHour, &s.SlotMinutes, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
