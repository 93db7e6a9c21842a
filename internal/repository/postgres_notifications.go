package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresNotificationsRepository implements NotificationsRepository over
// Postgres. Idempotency rides on the (user_id, reservation_id, type)
// unique constraint: duplicates become ON CONFLICT DO NOTHING no-ops.
type PostgresNotificationsRepository struct {
	db *sql.DB
}

func NewPostgresNotificationsRepository(db *sql.DB) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db}
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

func (r *PostgresNotificationsRepository) Insert(ctx context.Context, n *domain.Notification) (string, bool, error) {
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (notification_id, user_id, type, title, message, reservation_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, reservation_id, type) DO NOTHING`,
		n.NotificationID, n.UserID, n.Type, n.Title, n.Message, nullString(n.ReservationID),
	)
	if err != nil {
		return "", false, domain.NewStorageError("insert notification", err)
	}
	inserted, _ := res.RowsAffected()
	return n.NotificationID, inserted > 0, nil
}

func (r *PostgresNotificationsRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, size int) ([]*domain.Notification, int, error) {
	cond := `user_id = $1`
	if unreadOnly {
		cond += ` AND read = FALSE`
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE `+cond, userID).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count notifications", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT notification_id::text, user_id::text, type, title, message, read, reservation_id::text, created_at
		 FROM notifications WHERE `+cond+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, domain.NewStorageError("list notifications", err)
	}
	defer rows.Close()

	var items []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.NotificationID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.Read, &n.ReservationID, &n.CreatedAt,
		)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan notification", err)
		}
		items = append(items, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list notifications", err)
	}
	return items, total, nil
}

func (r *PostgresNotificationsRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE notification_id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return domain.NewStorageError("mark notification read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "notification", ID: notificationID}
	}
	return nil
}

func (r *PostgresNotificationsRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, domain.NewStorageError("mark all notifications read", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
