package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
)

func startWatcher(t *testing.T, env *testEnv, userID string, viewing *ViewingContext, duration time.Duration) *BannerWatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewBannerWatcher(userID, viewing, duration, env.convRepo, env.courtRepo, env.notifRepo)
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let the watcher take its baseline before the test writes anything.
	time.Sleep(50 * time.Millisecond)
	return w
}

func assertNoBanner(t *testing.T, w *BannerWatcher) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected banner event %s: %+v", ev.Type, ev.Banner)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestBaselineRaisesNoBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	for _, text := range []string{"one", "two", "three"} {
		_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: text})
		require.NoError(t, err)
	}

	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	assertNoBanner(t, w)
}

func TestNewDirectMessageRaisesBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	ev := recv(t, w.Events())
	assert.Equal(t, BannerShown, ev.Type)
	assert.Equal(t, BannerDirect, ev.Banner.Kind)
	assert.Equal(t, "Alice: hello", ev.Banner.Body)
	assert.Equal(t, thread, ev.Banner.Thread)
}

func TestGifBannerText(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	_, err := env.messages.Send(context.Background(), "u1", thread, SendMessageInput{GifURL: "https://media.tenor.com/a.gif"})
	require.NoError(t, err)

	ev := recv(t, w.Events())
	assert.Equal(t, "Alice: sent a GIF", ev.Banner.Body)
}

func TestOwnMessageRaisesNoBanner(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	w := startWatcher(t, env, "u1", &ViewingContext{}, time.Minute)

	_, err := env.messages.Send(context.Background(), "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	assertNoBanner(t, w)
}

func TestViewedThreadIsSuppressed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	viewing := &ViewingContext{}
	viewing.Set(thread)
	w := startWatcher(t, env, "u2", viewing, time.Minute)

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)
	assertNoBanner(t, w)

	viewing.Clear()
	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "still there?"})
	require.NoError(t, err)
	ev := recv(t, w.Events())
	assert.Equal(t, "Alice: still there?", ev.Banner.Body)
}

func TestReadReceiptRaisesNoBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)
	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	env.conversations.MarkRead(ctx, "u1", thread.ID)

	assertNoBanner(t, w)
}

func TestCourtMessageBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	court, err := env.courts.Create(ctx, "u2", CreateCourtInput{Name: "Rucker Park"})
	require.NoError(t, err)
	_, err = env.courts.CheckIn(ctx, "u1", court.ID)
	require.NoError(t, err)

	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	_, err = env.messages.Send(ctx, "u1", court.Thread(), SendMessageInput{Text: "got next"})
	require.NoError(t, err)

	ev := recv(t, w.Events())
	assert.Equal(t, BannerCourt, ev.Banner.Kind)
	assert.Equal(t, "Rucker Park", ev.Banner.Title)
	assert.Equal(t, "Alice: got next", ev.Banner.Body)
}

func TestJoiningCourtDoesNotReplayOldMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	court, err := env.courts.Create(ctx, "u1", CreateCourtInput{Name: "West 4th"})
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, "u1", court.Thread(), SendMessageInput{Text: "old news"})
	require.NoError(t, err)

	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)
	_, err = env.courts.CheckIn(ctx, "u2", court.ID)
	require.NoError(t, err)

	assertNoBanner(t, w)
}

func TestReactionNotificationBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "crossover"})
	require.NoError(t, err)

	w := startWatcher(t, env, "u1", &ViewingContext{}, time.Minute)

	_, err = env.reactions.Toggle(ctx, "u2", thread, msg.ID, "🔥")
	require.NoError(t, err)

	ev := recv(t, w.Events())
	assert.Equal(t, BannerReaction, ev.Banner.Kind)
	assert.Equal(t, "Bob reacted 🔥 to your message", ev.Banner.Body)
	assert.Equal(t, thread, ev.Banner.Thread)
}

func TestBannerAutoDismisses(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	w := startWatcher(t, env, "u2", &ViewingContext{}, 100*time.Millisecond)

	_, err := env.messages.Send(context.Background(), "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	shown := recv(t, w.Events())
	require.Equal(t, BannerShown, shown.Type)
	dismissed := recv(t, w.Events())
	assert.Equal(t, BannerDismissed, dismissed.Type)
	assert.Equal(t, shown.Banner.ID, dismissed.Banner.ID)
}

func TestNewBannerReplacesCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "one"})
	require.NoError(t, err)
	first := recv(t, w.Events())

	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "two"})
	require.NoError(t, err)
	second := recv(t, w.Events())

	assert.Equal(t, BannerShown, second.Type)
	assert.NotEqual(t, first.Banner.ID, second.Banner.ID)
	assert.Equal(t, "Alice: two", second.Banner.Body)
}

func TestTapReturnsThreadAndDismisses(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	w := startWatcher(t, env, "u2", &ViewingContext{}, time.Minute)

	target, ok := w.Tap()
	assert.False(t, ok)
	assert.True(t, target.IsZero())

	_, err := env.messages.Send(context.Background(), "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)
	recv(t, w.Events())

	target, ok = w.Tap()
	require.True(t, ok)
	assert.Equal(t, thread, target)
	assert.Equal(t, BannerDismissed, recv(t, w.Events()).Type)
}

func TestSeenTracker(t *testing.T) {
	t0 := time.Now()
	tr := newSeenTracker(false)
	tr.lastSeen["a"] = t0

	assert.False(t, tr.fresh("a", t0))
	assert.True(t, tr.fresh("a", t0.Add(time.Second)))
	assert.False(t, tr.fresh("a", t0))
	assert.True(t, tr.fresh("b", t0))

	baseline := newSeenTracker(true)
	assert.False(t, baseline.fresh("c", t0))
	assert.True(t, baseline.fresh("c", t0.Add(time.Second)))
}

func TestViewingContext(t *testing.T) {
	var v ViewingContext
	assert.True(t, v.Current().IsZero())

	thread := entity.ThreadRef{Kind: entity.ThreadCourt, ID: "c1"}
	v.Set(thread)
	assert.Equal(t, thread, v.Current())

	v.Clear()
	assert.True(t, v.Current().IsZero())
}
