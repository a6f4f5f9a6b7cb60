package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"estekhdam/internal/notification/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	payload := n.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO notifications (to_user_id, channel, template_key, payload, sent_at, delivery_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		int64(n.ToUserID), string(n.Channel), n.TemplateKey, []byte(payload), n.SentAt, string(n.DeliveryState),
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, to_user_id, channel, template_key, payload, sent_at, delivery_state, read_at
		FROM notifications WHERE to_user_id = $1 ORDER BY id DESC`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var channel, state string
		var payload []byte
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.ToUserID, &channel, &n.TemplateKey, &payload, &n.SentAt, &state, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Channel = models.Channel(channel)
		n.DeliveryState = models.DeliveryState(state)
		n.Payload = payload
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID, at time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND to_user_id = $2`, int64(notificationID), int64(userID), at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
