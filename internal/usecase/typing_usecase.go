package usecase

import (
	"context"
	"fmt"
	"strings"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/internal/live"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

// InputTracker follows a compose box and reports when it switches between
// empty and non-empty, which is when the typing flag is written.
type InputTracker struct {
	typing bool
}

// Update returns whether the typing state changed and the new state.
func (t *InputTracker) Update(text string) (changed, typing bool) {
	now := strings.TrimSpace(text) != ""
	changed = now != t.typing
	t.typing = now
	return changed, now
}

// Reset clears the state after a send and reports whether it was set.
func (t *InputTracker) Reset() bool {
	was := t.typing
	t.typing = false
	return was
}

func (t *InputTracker) Typing() bool {
	return t.typing
}

type TypingState struct {
	UserIDs []string `json:"user_ids"`
	Names   []string `json:"names"`
	Label   string   `json:"label"`
}

// TypingLabel formats the names of the users currently typing.
func TypingLabel(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	}
	return fmt.Sprintf("%s and %d others are typing...", names[0], len(names)-1)
}

// TypingStateFrom keeps the flags that are set and not the viewer's own.
func TypingStateFrom(flags []*entity.TypingFlag, viewerID string) TypingState {
	state := TypingState{UserIDs: []string{}, Names: []string{}}
	for _, f := range flags {
		if !f.IsTyping || f.UserID == viewerID {
			continue
		}
		name := f.DisplayName
		if name == "" {
			name = f.UserID
		}
		state.UserIDs = append(state.UserIDs, f.UserID)
		state.Names = append(state.Names, name)
	}
	state.Label = TypingLabel(state.Names)
	return state
}

type TypingUseCase struct {
	typingRepo  repository.TypingRepository
	convRepo    repository.ConversationRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewTypingUseCase(
	typingRepo repository.TypingRepository,
	convRepo repository.ConversationRepository,
	rateLimiter *ratelimit.RateLimiter,
) *TypingUseCase {
	return &TypingUseCase{
		typingRepo:  typingRepo,
		convRepo:    convRepo,
		rateLimiter: rateLimiter,
	}
}

// SetTyping writes the user's flag. Rate limited "typing" writes are dropped
// without error; clearing the flag is always written.
func (uc *TypingUseCase) SetTyping(ctx context.Context, userID, name, conversationID string, typing bool) error {
	if typing {
		if allowed, _ := uc.rateLimiter.Allow(userID, ratelimit.ActionTyping); !allowed {
			logger.Debug("Typing event dropped for %s in %s", userID, conversationID)
			return nil
		}
	}

	flag := &entity.TypingFlag{
		UserID:      userID,
		IsTyping:    typing,
		DisplayName: name,
	}
	if err := uc.typingRepo.Set(ctx, conversationID, flag); err != nil {
		logger.Warn("SetTyping Error: conversation %s user %s: %v", conversationID, userID, err)
		return err
	}
	return nil
}

// Watch streams who else is typing in a conversation.
func (uc *TypingUseCase) Watch(ctx context.Context, conversationID, viewerID string) (*live.Stream[TypingState], error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}

	src, err := uc.typingRepo.Watch(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	snaps := live.Open(ctx, "typing:"+conversationID, src)
	return live.Map(ctx, "typing-state:"+conversationID, snaps, func(s live.Snapshot[*entity.TypingFlag]) (TypingState, bool) {
		return TypingStateFrom(s.Docs, viewerID), true
	}), nil
}
