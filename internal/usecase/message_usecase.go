package usecase

import (
	"context"
	"net/url"
	"strings"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/internal/live"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

type SendMessageInput struct {
	Text   string
	GifURL string
}

// ScrollDecision tells a thread view what to do after a message list update.
type ScrollDecision string

const (
	ScrollNone              ScrollDecision = "none"
	ScrollToNewest          ScrollDecision = "scroll_to_newest"
	ShowNewMessageIndicator ScrollDecision = "new_message_indicator"
)

// DecideScroll advances to the newest message when the viewer was already
// there or just sent it, and otherwise asks for a new-message indicator.
// prevNewest is the newest message before the update (nil on first load).
// Updates that do not bring a message newer than prevNewest, such as a
// deletion of the newest message, leave the viewport alone.
func DecideScroll(prevNewest *entity.Message, next []*entity.Message, viewerAtNewest bool, selfID string) ScrollDecision {
	if len(next) == 0 {
		return ScrollNone
	}
	newest := next[len(next)-1]
	if prevNewest == nil {
		return ScrollToNewest
	}
	if !arrivedAfter(newest, prevNewest) {
		return ScrollNone
	}
	if viewerAtNewest || newest.UserID == selfID {
		return ScrollToNewest
	}
	return ShowNewMessageIndicator
}

// arrivedAfter orders messages the way threads list them: by creation time,
// then by id.
func arrivedAfter(m, prev *entity.Message) bool {
	if prev == nil {
		return true
	}
	if !m.CreatedAt.Equal(prev.CreatedAt) {
		return m.CreatedAt.After(prev.CreatedAt)
	}
	return m.ID > prev.ID
}

type MessageUseCase struct {
	msgRepo     repository.MessageRepository
	userRepo    repository.UserRepository
	access      threadAccess
	rateLimiter *ratelimit.RateLimiter
}

func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	courtRepo repository.CourtRepository,
	userRepo repository.UserRepository,
	rateLimiter *ratelimit.RateLimiter,
) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:     msgRepo,
		userRepo:    userRepo,
		access:      threadAccess{convRepo: convRepo, courtRepo: courtRepo},
		rateLimiter: rateLimiter,
	}
}

// Watch streams the full ordered message list of a thread. Every snapshot
// replaces the previous list.
func (uc *MessageUseCase) Watch(ctx context.Context, userID string, thread entity.ThreadRef) (*live.Stream[[]*entity.Message], error) {
	if err := uc.access.check(ctx, userID, thread); err != nil {
		return nil, err
	}
	src, err := uc.msgRepo.Watch(ctx, thread)
	if err != nil {
		return nil, err
	}
	snaps := live.Open(ctx, "messages:"+thread.String(), src)
	return live.Map(ctx, "message-list:"+thread.String(), snaps, func(s live.Snapshot[*entity.Message]) ([]*entity.Message, bool) {
		return s.Docs, true
	}), nil
}

func (uc *MessageUseCase) Send(ctx context.Context, userID string, thread entity.ThreadRef, input SendMessageInput) (*entity.Message, error) {
	text := strings.TrimSpace(input.Text)
	gif := strings.TrimSpace(input.GifURL)
	if (text == "") == (gif == "") {
		return nil, errors.BadRequest("A message needs either text or a GIF", nil)
	}
	if gif != "" {
		if u, err := url.Parse(gif); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, errors.BadRequest("Invalid GIF URL", err)
		}
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("SendMessage Rate Limited: User %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("You are sending messages too quickly", wait)
	}

	if err := uc.access.check(ctx, userID, thread); err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ID:     newID(),
		UserID: userID,
		Text:   text,
		GifURL: gif,
	}
	if gif != "" {
		msg.Type = entity.MessageGif
	} else {
		msg.Type = entity.MessageText
	}
	msg.UserName = displayName(ctx, uc.userRepo, userID)

	preview := entity.MessagePreview{
		Text:       msg.Text,
		Type:       msg.Type,
		SenderID:   userID,
		SenderName: msg.UserName,
	}
	if msg.Type == entity.MessageGif {
		preview.Text = msg.PreviewText()
	}

	if err := uc.msgRepo.Append(ctx, thread, msg, preview); err != nil {
		logger.Error("SendMessage Error: thread %s: %v", thread, err)
		return nil, err
	}

	currentMetrics().MessageSent(thread.Kind)
	return msg, nil
}

// Delete removes a message. Only its sender may delete it.
func (uc *MessageUseCase) Delete(ctx context.Context, userID string, thread entity.ThreadRef, messageID string) error {
	if err := uc.access.check(ctx, userID, thread); err != nil {
		return err
	}
	msg, err := uc.msgRepo.GetByID(ctx, thread, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return errors.Forbidden("Only the sender can delete this message", nil)
	}
	if err := uc.msgRepo.Delete(ctx, thread, messageID); err != nil {
		logger.Error("DeleteMessage Error: %v", err)
		return err
	}
	return nil
}
