package repository

import (
	"context"
	"time"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error)
	// DeleteAllOlderThan prunes every user's notifications.
	DeleteAllOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Watch(ctx context.Context, userID string) (live.Source[*entity.Notification], error)
}
