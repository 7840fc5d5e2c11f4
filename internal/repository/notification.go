package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/order"
)

const insertNotificationSQL = `INSERT INTO notifications (id, shop_id, user_id, title, message, kind)
	VALUES ($1, $2, $3, $4, $5, $6)`

var _ order.Notifier = (*NotificationRepository)(nil)

// NotificationRepository stores user-facing notifications as rows. A real
// push channel can be layered on top later; the table is the source of truth.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository using the given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Notify records a notification row for the user.
func (r *NotificationRepository) Notify(ctx context.Context, shopID, userID, title, message, kind string) error {
	_, err := r.pool.Exec(ctx, insertNotificationSQL,
		uuid.NewString(), shopID, userID, title, message, kind,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}
