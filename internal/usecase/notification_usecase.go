package usecase

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/logger"
)

const defaultNotificationLimit = 50

type NotificationView struct {
	*entity.Notification
	Age string `json:"age"`
}

type NotificationUseCase struct {
	repo repository.NotificationRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewNotificationUseCase(repo repository.NotificationRepository, ttl time.Duration) *NotificationUseCase {
	return &NotificationUseCase{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

func (uc *NotificationUseCase) Notify(ctx context.Context, n *entity.Notification) error {
	if err := uc.repo.Create(ctx, n); err != nil {
		logger.Error("Notify Error: user %s: %v", n.UserID, err)
		return err
	}
	return nil
}

// List returns the newest notifications with a relative age such as
// "3 minutes ago".
func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit int) ([]NotificationView, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	list, err := uc.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, NotificationView{
			Notification: n,
			Age:          humanize.RelTime(n.CreatedAt, now, "ago", "from now"),
		})
	}
	return views, nil
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	return uc.repo.MarkRead(ctx, userID, notificationID)
}

func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return uc.repo.MarkAllRead(ctx, userID)
}

// PruneStale deletes the user's notifications older than the TTL. It runs when
// a session starts.
func (uc *NotificationUseCase) PruneStale(ctx context.Context, userID string) (int, error) {
	n, err := uc.repo.DeleteOlderThan(ctx, userID, uc.now().Add(-uc.ttl))
	if err != nil {
		logger.Warn("PruneStale Error: user %s: %v", userID, err)
		return n, err
	}
	if n > 0 {
		currentMetrics().NotificationsPruned(n)
	}
	return n, nil
}

// PruneAll deletes stale notifications of every user.
func (uc *NotificationUseCase) PruneAll(ctx context.Context) (int, error) {
	n, err := uc.repo.DeleteAllOlderThan(ctx, uc.now().Add(-uc.ttl))
	if err != nil {
		return n, err
	}
	if n > 0 {
		currentMetrics().NotificationsPruned(n)
	}
	return n, nil
}
