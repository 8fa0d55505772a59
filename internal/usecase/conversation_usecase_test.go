package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
	"courtside/pkg/errors"
)

func TestHasUnread(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		conv *entity.Conversation
		want bool
	}{
		{
			name: "own last message",
			conv: &entity.Conversation{LastMessageSenderID: "u1", UpdatedAt: t0},
			want: false,
		},
		{
			name: "never read",
			conv: &entity.Conversation{LastMessageSenderID: "u2", UpdatedAt: t0},
			want: true,
		},
		{
			name: "read before update",
			conv: &entity.Conversation{LastMessageSenderID: "u2", UpdatedAt: t0, ReadBy: map[string]time.Time{"u1": t0.Add(-time.Second)}},
			want: true,
		},
		{
			name: "read at update time",
			conv: &entity.Conversation{LastMessageSenderID: "u2", UpdatedAt: t0, ReadBy: map[string]time.Time{"u1": t0}},
			want: false,
		},
		{
			name: "read after update",
			conv: &entity.Conversation{LastMessageSenderID: "u2", UpdatedAt: t0, ReadBy: map[string]time.Time{"u1": t0.Add(time.Minute)}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasUnread(tt.conv, "u1"))
		})
	}
}

func TestSortConversationsPutsMissingTimestampsLast(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	convs := []*entity.Conversation{
		{ID: "none"},
		{ID: "old", UpdatedAt: t0},
		{ID: "new", UpdatedAt: t0.Add(time.Hour)},
	}

	SortConversations(convs)

	ids := []string{convs[0].ID, convs[1].ID, convs[2].ID}
	assert.Equal(t, []string{"new", "old", "none"}, ids)
}

func TestProjectConversationsFiltersAndNames(t *testing.T) {
	docs := []*entity.Conversation{
		{
			ID:           "dm_u1_u2",
			Type:         entity.ConversationDirect,
			Participants: []string{"u1", "u2"},
			ParticipantInfo: map[string]entity.ParticipantInfo{
				"u2": {DisplayName: "Bob", ProfileImage: "avatars/u2.png"},
			},
		},
		{ID: "dm_u3_u4", Type: entity.ConversationDirect, Participants: []string{"u3", "u4"}},
		{ID: "grp_1", Type: entity.ConversationGroup, Name: "Pickup", Participants: []string{"u1", "u3", "u4"}},
	}

	views := ProjectConversations(docs, "u1")

	require.Len(t, views, 2)
	byID := map[string]ConversationView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.Equal(t, "Bob", byID["dm_u1_u2"].Name)
	assert.Equal(t, "avatars/u2.png", byID["dm_u1_u2"].OtherImage)
	assert.Equal(t, []string{"u2"}, byID["dm_u1_u2"].OtherUserIDs)
	assert.Equal(t, "Pickup", byID["grp_1"].Name)
}

func TestStartDirectIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")

	first, err := env.conversations.StartDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	second, err := env.conversations.StartDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	fromOtherSide, err := env.conversations.StartDirect(ctx, "u2", "u1")
	require.NoError(t, err)

	assert.Equal(t, "dm_u1_u2", first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, fromOtherSide.ID)
	assert.ElementsMatch(t, []string{"u1", "u2"}, first.Participants)
	assert.Equal(t, "Bob", first.ParticipantInfo["u2"].DisplayName)

	all, err := env.convRepo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentStartDirectConverges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")

	const perSide = 4
	ids := make([]string, 2*perSide)
	errs := make([]error, 2*perSide)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2*perSide; i++ {
		from, to := "u1", "u2"
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			<-start
			conv, err := env.conversations.StartDirect(ctx, from, to)
			errs[i] = err
			if err == nil {
				ids[i] = conv.ID
			}
		}(i, from, to)
	}
	close(start)
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	all, err := env.convRepo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStartDirectKeepsUnderscoreIDsApart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"a", "a_b", "b_c", "c"} {
		env.addUser(t, id, id)
	}

	first, err := env.conversations.StartDirect(ctx, "a_b", "c")
	require.NoError(t, err)
	second, err := env.conversations.StartDirect(ctx, "a", "b_c")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.ElementsMatch(t, []string{"a_b", "c"}, first.Participants)
	assert.ElementsMatch(t, []string{"a", "b_c"}, second.Participants)

	_, err = env.messages.Send(ctx, "a", second.Thread(), SendMessageInput{Text: "hi"})
	require.NoError(t, err)
}

func TestStartDirectRejectsSelfAndUnknownFriend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")

	_, err := env.conversations.StartDirect(ctx, "u1", "u1")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.conversations.StartDirect(ctx, "u1", "ghost")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestCreateGroupNeedsThreeDistinctMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	env.addUser(t, "u3", "Cara")

	_, err := env.conversations.CreateGroup(ctx, "u1", "Run", []string{"u2", "u2", "u1"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	conv, err := env.conversations.CreateGroup(ctx, "u1", "Run", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationGroup, conv.Type)
	assert.Equal(t, []string{"u1", "u2", "u3"}, conv.Participants)
}

func TestMarkReadClearsUnread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	views, err := env.conversations.ListConversations(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Unread)

	env.conversations.MarkRead(ctx, "u2", thread.ID)

	views, err = env.conversations.ListConversations(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, views[0].Unread)

	views, err = env.conversations.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, views[0].Unread)
}

func TestMarkReadSwallowsErrors(t *testing.T) {
	env := newTestEnv(t)
	assert.NotPanics(t, func() {
		env.conversations.MarkRead(context.Background(), "u1", "missing")
	})
}

func TestMarkReadIgnoresOutsiders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	env.addUser(t, "u3", "Cara")

	env.conversations.MarkRead(ctx, "u3", thread.ID)

	conv, err := env.convRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	_, ok := conv.ReadBy["u3"]
	assert.False(t, ok)
}

func TestDeleteRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	env.addUser(t, "u3", "Cara")

	err := env.conversations.Delete(ctx, "u3", thread.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.conversations.Delete(ctx, "u1", thread.ID))
	_, err = env.convRepo.GetByID(ctx, thread.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestWatchConversationsFollowsUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)

	stream, err := env.conversations.WatchConversations(ctx, "u2")
	require.NoError(t, err)
	defer stream.Stop()

	initial := recv(t, stream.C())
	require.Len(t, initial, 1)
	assert.Empty(t, initial[0].LastMessage)

	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	updated := recvUntil(t, stream.C(), func(v []ConversationView) bool {
		return len(v) == 1 && v[0].LastMessage == "hello"
	})
	assert.Equal(t, "Alice", updated[0].Name)
	assert.Equal(t, "u1", updated[0].LastMessageSenderID)
	assert.True(t, updated[0].Unread)
}

type prefixAvatars struct{}

func (prefixAvatars) Resolve(_ context.Context, ref string) string { return "https://cdn.test/" + ref }

func TestListConversationsResolvesAvatars(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.userRepo.Create(ctx, &entity.User{ID: "u1", DisplayName: "Alice"}))
	require.NoError(t, env.userRepo.Create(ctx, &entity.User{ID: "u2", DisplayName: "Bob", ProfileImage: "avatars/u2.png"}))
	_, err := env.conversations.StartDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	uc := NewConversationUseCase(env.convRepo, env.userRepo, nil, prefixAvatars{})
	views, err := uc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatars/u2.png", views[0].OtherImage)
}
