package repository

import (
	"context"
	"time"

	"salonpos-backend/internal/db"
	"salonpos-backend/internal/domain"
)

type NotificationRepository struct {
	DB *db.Postgres
}

type CreateNotificationInput struct {
	SalonID int64
	Title   string
	Message string
	Type    domain.NotificationType
	Created time.Time
}

func (r NotificationRepository) Create(ctx context.Context, in CreateNotificationInput) (*domain.Notification, error) {
	var n domain.Notification
	createdAt := in.Created
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO notifications (salon_id, title, message, type, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, salon_id, title, message, type, created_at, read_at
	`, in.SalonID, in.Title, in.Message, string(in.Type), createdAt).Scan(
		&n.ID, &n.SalonID, &n.Title, &n.Message, (*string)(&n.Type), &n.CreatedAt, &n.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r NotificationRepository) List(ctx context.Context, salonID int64, limit int) ([]domain.Notification, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, salon_id, title, message, type, created_at, read_at
		FROM notifications
		WHERE deleted_at IS NULL AND salon_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, salonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.SalonID, &n.Title, &n.Message, (*string)(&n.Type), &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r NotificationRepository) MarkRead(ctx context.Context, salonID, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE id=$1 AND salon_id=$2 AND read_at IS NULL
	`, id, salonID)
	return err
}
