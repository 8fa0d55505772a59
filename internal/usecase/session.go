package usecase

import (
	"context"
	"sync"

	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

// TokenRevoker invalidates a user's refresh tokens with the identity provider.
type TokenRevoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// Session is one authenticated connection. Everything started on its behalf
// is tied to its context and ends when the session is closed or its user
// signs out.
type Session struct {
	ID string
	Identity
	Viewing *ViewingContext
	Log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Session
	revoker  TokenRevoker
}

func NewSessionRegistry(revoker TokenRevoker) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]map[string]*Session),
		revoker:  revoker,
	}
}

func (r *SessionRegistry) Open(parent context.Context, id Identity) *Session {
	ctx, cancel := context.WithCancel(parent)
	sess := &Session{
		ID:       newID(),
		Identity: id,
		Viewing:  &ViewingContext{},
		ctx:      ctx,
		cancel:   cancel,
	}
	sess.Log = logger.With("user_id", id.UserID, "session_id", sess.ID)

	r.mu.Lock()
	if r.sessions[id.UserID] == nil {
		r.sessions[id.UserID] = make(map[string]*Session)
	}
	r.sessions[id.UserID][sess.ID] = sess
	r.mu.Unlock()

	sess.Log.Info("Session opened")
	return sess
}

// Close cancels the session and forgets it. It is safe to call twice.
func (r *SessionRegistry) Close(sess *Session) {
	sess.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if byID, ok := r.sessions[sess.UserID]; ok {
		if _, ok := byID[sess.ID]; ok {
			delete(byID, sess.ID)
			sess.Log.Info("Session closed")
		}
		if len(byID) == 0 {
			delete(r.sessions, sess.UserID)
		}
	}
}

// Active returns how many sessions the user has open.
func (r *SessionRegistry) Active(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[userID])
}

// SignOut revokes the user's tokens and tears down all of their sessions.
// Sessions are closed even when revocation fails.
func (r *SessionRegistry) SignOut(ctx context.Context, userID string) error {
	var revokeErr error
	if r.revoker != nil {
		if err := r.revoker.RevokeRefreshTokens(ctx, userID); err != nil {
			logger.Error("SignOut Error: revoke tokens for %s: %v", userID, err)
			revokeErr = errors.Internal("Failed to revoke tokens", err)
		}
	}

	r.mu.Lock()
	byID := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	for _, sess := range byID {
		sess.cancel()
	}
	logger.Info("User %s signed out, %d sessions closed", userID, len(byID))
	return revokeErr
}
