package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
	"courtside/pkg/errors"
)

func msgs(pairs ...string) []*entity.Message {
	out := make([]*entity.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &entity.Message{ID: pairs[i], UserID: pairs[i+1]})
	}
	return out
}

func TestDecideScroll(t *testing.T) {
	m1 := &entity.Message{ID: "m1", UserID: "u2"}
	tests := []struct {
		name     string
		prev     *entity.Message
		next     []*entity.Message
		atNewest bool
		want     ScrollDecision
	}{
		{name: "empty thread", prev: nil, next: nil, want: ScrollNone},
		{name: "first load", prev: nil, next: msgs("m1", "u2"), atNewest: false, want: ScrollToNewest},
		{name: "no new message", prev: m1, next: msgs("m1", "u2"), atNewest: false, want: ScrollNone},
		{name: "viewer at newest", prev: m1, next: msgs("m1", "u2", "m2", "u2"), atNewest: true, want: ScrollToNewest},
		{name: "viewer just sent", prev: m1, next: msgs("m1", "u2", "m2", "me"), atNewest: false, want: ScrollToNewest},
		{name: "viewer scrolled up", prev: m1, next: msgs("m1", "u2", "m2", "u2"), atNewest: false, want: ShowNewMessageIndicator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideScroll(tt.prev, tt.next, tt.atNewest, "me"))
		})
	}
}

func TestDecideScrollIgnoresDeletedNewest(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := &entity.Message{ID: "zz", UserID: "u2", CreatedAt: t0}
	newest := &entity.Message{ID: "aa", UserID: "u2", CreatedAt: t0.Add(time.Second)}

	assert.Equal(t, ScrollNone, DecideScroll(newest, []*entity.Message{older}, false, "me"))
	assert.Equal(t, ScrollNone, DecideScroll(newest, []*entity.Message{older}, true, "me"))

	later := &entity.Message{ID: "bb", UserID: "u2", CreatedAt: t0.Add(2 * time.Second)}
	assert.Equal(t, ShowNewMessageIndicator, DecideScroll(newest, []*entity.Message{older, later}, false, "me"))
}

func TestSendRequiresExactlyOneBody(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hi", GifURL: "https://media.tenor.com/x.gif"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{GifURL: "not a url"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendRejectsOutsiders(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	env.addUser(t, "u3", "Cara")

	_, err := env.messages.Send(context.Background(), "u3", thread, SendMessageInput{Text: "hi"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestSendStoresMessageAndPreview(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()
	before := time.Now()

	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	stored, err := env.msgRepo.GetByID(ctx, thread, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Text)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "Alice", stored.UserName)
	assert.Equal(t, entity.MessageText, stored.Type)
	assert.False(t, stored.CreatedAt.Before(before))

	conv, err := env.convRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", conv.LastMessage)
	assert.Equal(t, "u1", conv.LastMessageSenderID)
	assert.Equal(t, entity.MessageText, conv.LastMessageType)
}

func TestSendGifPreview(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{GifURL: "https://media.tenor.com/dunk.gif"})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageGif, msg.Type)

	conv, err := env.convRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "sent a GIF", conv.LastMessage)
	assert.Equal(t, entity.MessageGif, conv.LastMessageType)
}

func TestSendToCourtRequiresCheckIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	court, err := env.courts.Create(ctx, "u2", CreateCourtInput{Name: "Rucker Park"})
	require.NoError(t, err)

	_, err = env.messages.Send(ctx, "u1", court.Thread(), SendMessageInput{Text: "next"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = env.courts.CheckIn(ctx, "u1", court.ID)
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, "u1", court.Thread(), SendMessageInput{Text: "next"})
	require.NoError(t, err)

	stored, err := env.courts.Get(ctx, court.ID)
	require.NoError(t, err)
	assert.Equal(t, "next", stored.LastMessage)
	assert.Equal(t, "Alice", stored.LastMessageSenderName)
}

func TestDeleteOnlyBySender(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "oops"})
	require.NoError(t, err)

	err = env.messages.Delete(ctx, "u2", thread, msg.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.messages.Delete(ctx, "u1", thread, msg.ID))
	_, err = env.msgRepo.GetByID(ctx, thread, msg.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestWatchMirrorsThread(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	ctx := context.Background()

	stream, err := env.messages.Watch(ctx, "u2", thread)
	require.NoError(t, err)
	defer stream.Stop()
	assert.Empty(t, recv(t, stream.C()))

	first, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "one"})
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, "u2", thread, SendMessageInput{Text: "two"})
	require.NoError(t, err)

	list := recvUntil(t, stream.C(), func(l []*entity.Message) bool { return len(l) == 2 })
	assert.Equal(t, "one", list[0].Text)
	assert.Equal(t, "two", list[1].Text)

	require.NoError(t, env.messages.Delete(ctx, "u1", thread, first.ID))
	list = recvUntil(t, stream.C(), func(l []*entity.Message) bool { return len(l) == 1 })
	assert.Equal(t, "two", list[0].Text)
}
