package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain/entity"
)

type chanSink struct {
	events chan Event
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan Event, 256)}
}

func (s *chanSink) Send(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runningSession struct {
	sess     *Session
	commands chan Command
	sink     *chanSink
	done     chan error
}

func (e *testEnv) syncService() *SyncService {
	return NewSyncService(e.conversations, e.messages, e.typing, e.reactions, e.notifications,
		e.convRepo, e.courtRepo, e.notifRepo, time.Minute)
}

func runSession(t *testing.T, env *testEnv, reg *SessionRegistry, id Identity) *runningSession {
	t.Helper()
	rs := &runningSession{
		sess:     reg.Open(context.Background(), id),
		commands: make(chan Command, 16),
		sink:     newChanSink(),
		done:     make(chan error, 1),
	}
	svc := env.syncService()
	go func() { rs.done <- svc.Run(rs.sess, rs.commands, rs.sink) }()
	t.Cleanup(func() {
		reg.Close(rs.sess)
		select {
		case <-rs.done:
		case <-time.After(5 * time.Second):
			t.Error("session did not stop")
		}
	})
	// Initial conversation list marks the session as live.
	rs.next(t, EventConversations)
	time.Sleep(50 * time.Millisecond)
	return rs
}

func (rs *runningSession) next(t *testing.T, eventType string) Event {
	t.Helper()
	return recvUntil(t, rs.sink.events, func(ev Event) bool { return ev.Type == eventType })
}

func TestEndToEndHelloRaisesBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2", DisplayName: "Bob"})

	conv, err := env.conversations.StartDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, "u1", conv.Thread(), SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	all, err := env.convRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"u1", "u2"}, all[0].Participants)
	assert.Equal(t, "hello", all[0].LastMessage)
	assert.Equal(t, "u1", all[0].LastMessageSenderID)

	banner := bob.next(t, EventBanner)
	assert.Equal(t, "Alice: hello", banner.Banner.Body)
	assert.Equal(t, conv.Thread(), banner.Banner.Thread)

	list := recvUntil(t, bob.sink.events, func(ev Event) bool {
		return ev.Type == EventConversations && len(ev.Conversations) == 1 && ev.Conversations[0].LastMessage == "hello"
	})
	assert.True(t, list.Conversations[0].Unread)
}

func TestOpenThreadStreamsMessagesAndSuppressesBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2", DisplayName: "Bob"})
	bob.commands <- Command{Type: CmdOpenThread, Thread: thread}

	first := bob.next(t, EventMessages)
	assert.Empty(t, first.Messages)

	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	got := bob.next(t, EventMessages)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Text)
	assert.Equal(t, ScrollToNewest, got.Scroll)

	// Opening the thread marks it read.
	require.Eventually(t, func() bool {
		conv, err := env.convRepo.GetByID(ctx, thread.ID)
		return err == nil && !HasUnread(conv, "u2")
	}, 2*time.Second, 20*time.Millisecond)

	for {
		select {
		case ev := <-bob.sink.events:
			require.NotEqual(t, EventBanner, ev.Type, "banner raised for the open thread")
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}
}

func TestScrolledUpViewerGetsIndicator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "first"})
	require.NoError(t, err)
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2", DisplayName: "Bob"})
	bob.commands <- Command{Type: CmdOpenThread, Thread: thread}
	bob.next(t, EventMessages)

	atNewest := false
	bob.commands <- Command{Type: CmdViewport, AtNewest: &atNewest}
	bob.commands <- Command{Type: CmdPing, RequestID: "p1"}
	bob.next(t, EventPong)

	_, err = env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "second"})
	require.NoError(t, err)

	ev := recvUntil(t, bob.sink.events, func(ev Event) bool { return ev.Type == EventMessages && len(ev.Messages) == 2 })
	assert.Equal(t, ShowNewMessageIndicator, ev.Scroll)
}

func TestSendThroughSessionClearsTyping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	reg := NewSessionRegistry(nil)

	alice := runSession(t, env, reg, Identity{UserID: "u1", DisplayName: "Alice"})
	alice.commands <- Command{Type: CmdOpenThread, Thread: thread}
	alice.next(t, EventMessages)

	typing, err := env.typing.Watch(ctx, thread.ID, "u2")
	require.NoError(t, err)
	defer typing.Stop()
	recv(t, typing.C())

	alice.commands <- Command{Type: CmdInput, Text: "hel"}
	state := recvUntil(t, typing.C(), func(s TypingState) bool { return s.Label != "" })
	assert.Equal(t, "Alice is typing...", state.Label)

	alice.commands <- Command{Type: CmdSendMessage, Text: "hello"}
	recvUntil(t, typing.C(), func(s TypingState) bool { return s.Label == "" })

	ev := recvUntil(t, alice.sink.events, func(ev Event) bool { return ev.Type == EventMessages && len(ev.Messages) == 1 })
	assert.Equal(t, ScrollToNewest, ev.Scroll)
	assert.Equal(t, "hello", ev.Messages[0].Text)
}

func TestReactionCommandsThroughSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	msg, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "poster"})
	require.NoError(t, err)
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2", DisplayName: "Bob"})
	bob.commands <- Command{Type: CmdOpenThread, Thread: thread}
	bob.next(t, EventMessages)

	bob.commands <- Command{Type: CmdDoubleTap, MessageID: msg.ID}
	ev := recvUntil(t, bob.sink.events, func(ev Event) bool {
		return ev.Type == EventMessages && len(ev.Messages) == 1 && len(ev.Messages[0].ReactionSummary) == 1
	})
	assert.Equal(t, ReactionGroup{Emoji: DefaultReaction, Count: 1, Users: []string{"u2"}, Mine: true}, ev.Messages[0].ReactionSummary[0])

	bob.commands <- Command{Type: CmdReactionDetails, RequestID: "r1", MessageID: msg.ID}
	details := bob.next(t, EventReactionDetails)
	assert.Equal(t, "r1", details.RequestID)
	require.Len(t, details.Reactions, 1)
	assert.Equal(t, "Bob", details.Reactions[0].Reactors[0].Name)

	bob.commands <- Command{Type: CmdToggleReaction, RequestID: "r2", MessageID: msg.ID, Emoji: "🦄"}
	failed := bob.next(t, EventError)
	assert.Equal(t, "r2", failed.RequestID)
	assert.Equal(t, "BAD_REQUEST", failed.Error.Code)
}

func TestBannerTapOpensThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thread := env.startChat(t)
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2", DisplayName: "Bob"})
	_, err := env.messages.Send(ctx, "u1", thread, SendMessageInput{Text: "hello"})
	require.NoError(t, err)
	bob.next(t, EventBanner)

	bob.commands <- Command{Type: CmdBannerTap}

	var dismissed, opened bool
	for !(dismissed && opened) {
		ev := recv(t, bob.sink.events)
		switch ev.Type {
		case EventBannerDismissed:
			dismissed = true
		case EventMessages:
			opened = true
			assert.Equal(t, thread, *ev.Thread)
		}
	}
	assert.Equal(t, thread, bob.sess.Viewing.Current())
}

func TestSignOutEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.startChat(t)
	reg := NewSessionRegistry(nil)

	bob := runSession(t, env, reg, Identity{UserID: "u2"})

	require.NoError(t, reg.SignOut(context.Background(), "u2"))

	select {
	case err := <-bob.done:
		assert.NoError(t, err)
		bob.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("session still running after sign-out")
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	env := newTestEnv(t)
	reg := NewSessionRegistry(nil)
	bob := runSession(t, env, reg, Identity{UserID: "u2"})

	bob.commands <- Command{Type: "jump", RequestID: "x"}

	ev := bob.next(t, EventError)
	assert.Equal(t, "x", ev.RequestID)
}

func TestOpenThreadRejectsOutsider(t *testing.T) {
	env := newTestEnv(t)
	thread := env.startChat(t)
	env.addUser(t, "u3", "Cara")
	reg := NewSessionRegistry(nil)
	cara := runSession(t, env, reg, Identity{UserID: "u3"})

	cara.commands <- Command{Type: CmdOpenThread, RequestID: "o1", Thread: thread}

	ev := cara.next(t, EventError)
	assert.Equal(t, "FORBIDDEN", ev.Error.Code)
	assert.Equal(t, entity.ThreadRef{}, cara.sess.Viewing.Current())
}
