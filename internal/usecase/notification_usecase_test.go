package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
)

func TestListAddsRelativeAge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()
	env.notifications.now = func() time.Time { return now }

	require.NoError(t, env.notifications.Notify(ctx, &entity.Notification{
		UserID:    "u1",
		Type:      entity.NotificationReaction,
		CreatedAt: now.Add(-3 * time.Hour),
	}))

	list, err := env.notifications.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "3 hours ago", list[0].Age)
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, env.notifications.Notify(ctx, &entity.Notification{UserID: "u1", Type: entity.NotificationReaction}))
	}

	n, err := env.notifications.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := env.notifications.List(ctx, "u1", 0)
	require.NoError(t, err)
	for _, v := range list {
		assert.True(t, v.Read)
	}
}

func TestPruneStaleRemovesOnlyOldNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, env.notifications.Notify(ctx, &entity.Notification{UserID: "u1", Type: entity.NotificationReaction, CreatedAt: now.Add(-8 * 24 * time.Hour)}))
	require.NoError(t, env.notifications.Notify(ctx, &entity.Notification{UserID: "u1", Type: entity.NotificationReaction, CreatedAt: now.Add(-6 * 24 * time.Hour)}))

	n, err := env.notifications.PruneStale(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := env.notifications.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
