package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/adapter/repository/memory"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/internal/usecase"
)

type testServer struct {
	url      string
	manager  *Manager
	registry *usecase.SessionRegistry
	users    *usecase.UserUseCase
	convs    *usecase.ConversationUseCase
	messages *usecase.MessageUseCase
}

type nopRevoker struct{}

func (nopRevoker) RevokeRefreshTokens(context.Context, string) error { return nil }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	limiter := ratelimit.NewRateLimiter()

	userRepo := memory.NewUserRepository(store)
	convRepo := memory.NewConversationRepository(store)
	msgRepo := memory.NewMessageRepository(store)
	typingRepo := memory.NewTypingRepository(store)
	notifRepo := memory.NewNotificationRepository(store)
	courtRepo := memory.NewCourtRepository(store)

	convs := usecase.NewConversationUseCase(convRepo, userRepo, limiter, nil)
	messages := usecase.NewMessageUseCase(msgRepo, convRepo, courtRepo, userRepo, limiter)
	typing := usecase.NewTypingUseCase(typingRepo, convRepo, limiter)
	notifications := usecase.NewNotificationUseCase(notifRepo, 7*24*time.Hour)
	reactions := usecase.NewReactionUseCase(msgRepo, convRepo, courtRepo, userRepo, notifications, limiter)
	syncSvc := usecase.NewSyncService(convs, messages, typing, reactions, notifications, convRepo, courtRepo, notifRepo, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts := &testServer{
		manager:  NewManager(syncSvc),
		registry: usecase.NewSessionRegistry(nopRevoker{}),
		users:    usecase.NewUserUseCase(userRepo, nil, nil),
		convs:    convs,
		messages: messages,
	}
	ts.manager.Start(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.URL.Query().Get("uid")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := ts.registry.Open(ctx, usecase.Identity{UserID: uid, DisplayName: uid})
		defer ts.registry.Close(sess)
		ts.manager.Serve(sess, conn)
	}))
	t.Cleanup(srv.Close)
	ts.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ts
}

func (ts *testServer) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.url+"?uid="+uid, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, eventType string) usecase.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev usecase.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestServeStreamsConversationsAndAnswersPing(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	_, err := ts.users.EnsureProfile(ctx, usecase.Identity{UserID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)
	_, err = ts.users.EnsureProfile(ctx, usecase.Identity{UserID: "u2", DisplayName: "Bob"})
	require.NoError(t, err)

	conn := ts.dial(t, "u2")

	require.NoError(t, conn.WriteJSON(usecase.Command{Type: usecase.CmdPing, RequestID: "r1"}))
	pong := readEvent(t, conn, usecase.EventPong)
	assert.Equal(t, "r1", pong.RequestID)
	// Let the banner watcher take its baseline.
	time.Sleep(100 * time.Millisecond)

	conv, err := ts.convs.StartDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = ts.messages.Send(ctx, "u1", conv.Thread(), usecase.SendMessageInput{Text: "next run at 6?"})
	require.NoError(t, err)

	ev := readEvent(t, conn, usecase.EventBanner)
	require.NotNil(t, ev.Banner)
	assert.Equal(t, "Alice: next run at 6?", ev.Banner.Body)

	assert.Equal(t, 1, ts.manager.Count())
}

func TestInvalidFrameKeepsConnection(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "u1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readEvent(t, conn, usecase.EventError)
	assert.Equal(t, "BAD_REQUEST", ev.Error.Code)

	require.NoError(t, conn.WriteJSON(usecase.Command{Type: usecase.CmdPing}))
	readEvent(t, conn, usecase.EventPong)
}

func TestSignOutClosesConnection(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "u1")

	require.NoError(t, conn.WriteJSON(usecase.Command{Type: usecase.CmdPing}))
	readEvent(t, conn, usecase.EventPong)

	require.NoError(t, ts.registry.SignOut(context.Background(), "u1"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
			break
		}
	}
	assert.Eventually(t, func() bool { return ts.manager.Count() == 0 }, time.Second, 10*time.Millisecond)
}

var _ usecase.EventSink = (*Client)(nil)
