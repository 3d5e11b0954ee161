package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/ordersync/internal/model"
)

// CreateNotification сохраняет уведомление.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}

	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}

	var externalID *string
	if n.ExternalOrderID != "" {
		externalID = &n.ExternalOrderID
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, type, title, message, data, external_order_id, read)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		n.ID, n.Type, n.Title, n.Message, data, externalID, n.Read,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListNotifications возвращает последние уведомления, новые первыми.
func (r *PostgresRepository) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, type, title, message, data, external_order_id, read, created_at
		 FROM notifications
		 WHERE NOT $1 OR NOT read
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		unreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	res := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n          model.Notification
			data       []byte
			externalID *string
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &data, &externalID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification data: %w", err)
		}
		if externalID != nil {
			n.ExternalOrderID = *externalID
		}
		n.CreatedAt = n.CreatedAt.UTC()
		res = append(res, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
