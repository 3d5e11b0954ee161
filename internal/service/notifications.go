package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mmeshcher/ordersync/internal/model"
)

// ListNotifications возвращает последние уведомления.
func (s *Service) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error) {
	return s.repo.ListNotifications(ctx, unreadOnly, limit)
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkNotificationRead(ctx, id)
}
