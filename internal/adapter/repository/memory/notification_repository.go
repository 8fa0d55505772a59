package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type notificationRepository struct {
	store *Store
}

func NewNotificationRepository(store *Store) repository.NotificationRepository {
	return &notificationRepository{store: store}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.stamp()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	r.store.notificationTable(n.UserID).put(n, now)
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	list := r.store.notificationTable(userID).list(nil)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table := r.store.notificationTable(userID)
	n, ok := table.get(notificationID)
	if !ok {
		return errors.NotFound("Notification", nil)
	}
	n.Read = true
	table.put(n, r.store.stamp())
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table := r.store.notificationTable(userID)
	unread := table.list(func(n *entity.Notification) bool { return !n.Read })
	for _, n := range unread {
		n.Read = true
		table.put(n, r.store.stamp())
	}
	return len(unread), nil
}

func (r *notificationRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.deleteOlderThan(r.store.notificationTable(userID), cutoff), nil
}

func (r *notificationRepository) DeleteAllOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	total := 0
	for _, table := range r.store.notifications {
		total += r.deleteOlderThan(table, cutoff)
	}
	return total, nil
}

func (r *notificationRepository) deleteOlderThan(table *table[*entity.Notification], cutoff time.Time) int {
	stale := table.list(func(n *entity.Notification) bool { return n.CreatedAt.Before(cutoff) })
	for _, n := range stale {
		table.remove(n.ID, r.store.stamp())
	}
	return len(stale)
}

func (r *notificationRepository) Watch(ctx context.Context, userID string) (live.Source[*entity.Notification], error) {
	r.store.mu.Lock()
	table := r.store.notificationTable(userID)
	r.store.mu.Unlock()
	return watch(r.store, table, nil), nil
}
