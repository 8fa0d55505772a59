package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
	"courtside/pkg/errors"
)

func TestToggleUserIsItsOwnInverse(t *testing.T) {
	start := map[string][]string{"🔥": {"u2"}, "👍": {"u1", "u3"}}

	once := ToggleUser(start, "🔥", "u1")
	assert.ElementsMatch(t, []string{"u2", "u1"}, once["🔥"])

	twice := ToggleUser(once, "🔥", "u1")
	assert.Equal(t, start, twice)

	removed := ToggleUser(map[string][]string{"😮": {"u1"}}, "😮", "u1")
	assert.Empty(t, removed)

	// The input is never modified.
	assert.Equal(t, []string{"u2"}, start["🔥"])
}

func TestSummarizeOrdersByPalette(t *testing.T) {
	groups := Summarize(map[string][]string{
		"🏀":  {"u2"},
		"❤️": {"u1", "u2"},
		"😂":  {},
	}, "u1")

	require.Len(t, groups, 2)
	assert.Equal(t, ReactionGroup{Emoji: "❤️", Count: 2, Users: []string{"u1", "u2"}, Mine: true}, groups[0])
	assert.Equal(t, ReactionGroup{Emoji: "🏀", Count: 1, Users: []string{"u2"}, Mine: false}, groups[1])
}

func TestToggleRejectsUnknownEmoji(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)

	_, err := env.reactions.Toggle(context.Background(), "u1", thread, "m1", "🦄")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestToggleNotifiesAuthorOnlyForOthers(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "and one"})
	require.NoError(t, err)

	added, err := env.reactions.Toggle(ctx, "u1", thread, msg.ID, "🔥")
	require.NoError(t, err)
	assert.True(t, added)
	own, err := env.notifications.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, own)

	added, err = env.reactions.DoubleTap(ctx, "u2", thread, msg.ID)
	require.NoError(t, err)
	assert.True(t, added)

	list, err := env.notifications.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	n := list[0]
	assert.Equal(t, entity.NotificationReaction, n.Type)
	assert.Equal(t, "u2", n.ActorID)
	assert.Equal(t, "Bob", n.ActorName)
	assert.Equal(t, DefaultReaction, n.Emoji)
	assert.Equal(t, thread, n.Thread())
	assert.Equal(t, msg.ID, n.MessageID)

	// Removing a reaction does not notify.
	added, err = env.reactions.DoubleTap(ctx, "u2", thread, msg.ID)
	require.NoError(t, err)
	assert.False(t, added)
	list, err = env.notifications.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDetailsResolvesNames(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "swish"})
	require.NoError(t, err)
	_, err = env.reactions.Toggle(ctx, "u2", thread, msg.ID, "👍")
	require.NoError(t, err)
	_, err = env.reactions.Toggle(ctx, "u1", thread, msg.ID, "❤️")
	require.NoError(t, err)
	// A reactor whose profile no longer exists.
	_, err = env.msgRepo.ToggleReaction(ctx, thread, msg.ID, "👍", "gone")
	require.NoError(t, err)

	details, err := env.reactions.Details(ctx, "u1", thread, msg.ID)
	require.NoError(t, err)

	require.Len(t, details, 2)
	assert.Equal(t, "❤️", details[0].Emoji)
	assert.Equal(t, []Reactor{{UserID: "u1", Name: "Alice"}}, details[0].Reactors)
	assert.Equal(t, "👍", details[1].Emoji)
	assert.Equal(t, []Reactor{{UserID: "u2", Name: "Bob"}, {UserID: "gone", Name: "Unknown"}}, details[1].Reactors)
}
