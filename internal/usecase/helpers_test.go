package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"courtside/internal/adapter/repository/memory"
	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/infrastructure/ratelimit"
)

type testEnv struct {
	userRepo   repository.UserRepository
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	typingRepo repository.TypingRepository
	notifRepo  repository.NotificationRepository
	courtRepo  repository.CourtRepository

	conversations *ConversationUseCase
	messages      *MessageUseCase
	typing        *TypingUseCase
	reactions     *ReactionUseCase
	notifications *NotificationUseCase
	courts        *CourtUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	limiter := ratelimit.NewRateLimiter()

	e := &testEnv{
		userRepo:   memory.NewUserRepository(store),
		convRepo:   memory.NewConversationRepository(store),
		msgRepo:    memory.NewMessageRepository(store),
		typingRepo: memory.NewTypingRepository(store),
		notifRepo:  memory.NewNotificationRepository(store),
		courtRepo:  memory.NewCourtRepository(store),
	}
	e.conversations = NewConversationUseCase(e.convRepo, e.userRepo, limiter, nil)
	e.messages = NewMessageUseCase(e.msgRepo, e.convRepo, e.courtRepo, e.userRepo, limiter)
	e.typing = NewTypingUseCase(e.typingRepo, e.convRepo, limiter)
	e.notifications = NewNotificationUseCase(e.notifRepo, 7*24*time.Hour)
	e.reactions = NewReactionUseCase(e.msgRepo, e.convRepo, e.courtRepo, e.userRepo, e.notifications, limiter)
	e.courts = NewCourtUseCase(e.courtRepo)
	return e
}

func (e *testEnv) addUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, e.userRepo.Create(context.Background(), &entity.User{ID: id, DisplayName: name, Email: id + "@example.com"}))
}

// startChat creates users u1 (Alice) and u2 (Bob) and their direct conversation.
func (e *testEnv) startChat(t *testing.T) entity.ThreadRef {
	t.Helper()
	e.addUser(t, "u1", "Alice")
	e.addUser(t, "u2", "Bob")
	conv, err := e.conversations.StartDirect(context.Background(), "u1", "u2")
	require.NoError(t, err)
	return conv.Thread()
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// recvUntil reads from ch until match returns true.
func recvUntil[T any](t *testing.T, ch <-chan T, match func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "channel closed")
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching value")
			var zero T
			return zero
		}
	}
}
