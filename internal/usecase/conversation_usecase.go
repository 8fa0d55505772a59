package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/internal/live"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

// AvatarResolver turns a stored profile image reference into a URL a client
// can load. Implementations return the reference unchanged when they cannot.
type AvatarResolver interface {
	Resolve(ctx context.Context, ref string) string
}

type passthroughAvatars struct{}

func (passthroughAvatars) Resolve(_ context.Context, ref string) string { return ref }

// ConversationView is one row of a user's conversation list.
type ConversationView struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	Name                string    `json:"name"`
	OtherUserIDs        []string  `json:"other_user_ids"`
	OtherImage          string    `json:"other_image,omitempty"`
	LastMessage         string    `json:"last_message,omitempty"`
	LastMessageType     string    `json:"last_message_type,omitempty"`
	LastMessageSenderID string    `json:"last_message_sender_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
	Unread              bool      `json:"unread"`
}

// HasUnread reports whether conv has activity userID has not read: the last
// message is from someone else and the user either never read the
// conversation or read it before its last update.
func HasUnread(conv *entity.Conversation, userID string) bool {
	if conv.LastMessageSenderID == userID {
		return false
	}
	readAt, ok := conv.ReadBy[userID]
	if !ok {
		return true
	}
	return conv.UpdatedAt.After(readAt)
}

// SortConversations orders newest first. Conversations without a timestamp
// sort last; ties break on id.
func SortConversations(convs []*entity.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].UpdatedAt, convs[j].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return convs[i].ID < convs[j].ID
	})
}

// ProjectConversations filters docs to the ones userID participates in and
// builds the sorted list view from the denormalized participant info.
func ProjectConversations(docs []*entity.Conversation, userID string) []ConversationView {
	mine := make([]*entity.Conversation, 0, len(docs))
	for _, conv := range docs {
		if conv.HasParticipant(userID) {
			mine = append(mine, conv)
		}
	}
	SortConversations(mine)

	views := make([]ConversationView, 0, len(mine))
	for _, conv := range mine {
		views = append(views, projectConversation(conv, userID))
	}
	return views
}

func projectConversation(conv *entity.Conversation, userID string) ConversationView {
	others := conv.Others(userID)
	view := ConversationView{
		ID:                  conv.ID,
		Type:                conv.Type,
		OtherUserIDs:        others,
		LastMessage:         conv.LastMessage,
		LastMessageType:     conv.LastMessageType,
		LastMessageSenderID: conv.LastMessageSenderID,
		UpdatedAt:           conv.UpdatedAt,
		Unread:              HasUnread(conv, userID),
	}

	if conv.Type == entity.ConversationGroup {
		view.Name = conv.Name
		if view.Name == "" {
			names := make([]string, 0, len(others))
			for _, id := range others {
				names = append(names, participantName(conv, id))
			}
			view.Name = strings.Join(names, ", ")
		}
		return view
	}

	if len(others) > 0 {
		view.Name = participantName(conv, others[0])
		view.OtherImage = conv.ParticipantInfo[others[0]].ProfileImage
	}
	return view
}

func participantName(conv *entity.Conversation, userID string) string {
	if info, ok := conv.ParticipantInfo[userID]; ok && info.DisplayName != "" {
		return info.DisplayName
	}
	return userID
}

type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	avatars     AvatarResolver
	rateLimiter *ratelimit.RateLimiter
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	rateLimiter *ratelimit.RateLimiter,
	avatars AvatarResolver,
) *ConversationUseCase {
	if avatars == nil {
		avatars = passthroughAvatars{}
	}
	return &ConversationUseCase{
		convRepo:    convRepo,
		userRepo:    userRepo,
		avatars:     avatars,
		rateLimiter: rateLimiter,
	}
}

// WatchConversations streams the user's conversation list, rebuilt from every
// snapshot of the collection.
func (uc *ConversationUseCase) WatchConversations(ctx context.Context, userID string) (*live.Stream[[]ConversationView], error) {
	src, err := uc.convRepo.WatchAll(ctx)
	if err != nil {
		return nil, err
	}
	snaps := live.Open(ctx, "conversations:"+userID, src)
	return live.Map(ctx, "conversation-list:"+userID, snaps, func(s live.Snapshot[*entity.Conversation]) ([]ConversationView, bool) {
		return uc.resolveAvatars(ctx, ProjectConversations(s.Docs, userID)), true
	}), nil
}

func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	docs, err := uc.convRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return uc.resolveAvatars(ctx, ProjectConversations(docs, userID)), nil
}

func (uc *ConversationUseCase) resolveAvatars(ctx context.Context, views []ConversationView) []ConversationView {
	for i := range views {
		if views[i].OtherImage != "" {
			views[i].OtherImage = uc.avatars.Resolve(ctx, views[i].OtherImage)
		}
	}
	return views
}

func (uc *ConversationUseCase) Get(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	return conv, nil
}

// StartDirect returns the direct conversation between userID and friendID,
// creating it on first use. Repeated calls resolve to the same conversation.
func (uc *ConversationUseCase) StartDirect(ctx context.Context, userID, friendID string) (*entity.Conversation, error) {
	if userID == friendID {
		logger.Warn("StartDirect Error: User %s attempted to start a chat with themselves", userID)
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	// Conversations created before deterministic ids existed are reused.
	if existing, err := uc.convRepo.FindDirect(ctx, userID, friendID); err == nil {
		return existing, nil
	} else if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionStartConversation); !allowed {
		logger.Warn("StartDirect Rate Limited: User %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Too many new conversations", wait)
	}

	me, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	friend, err := uc.userRepo.GetByID(ctx, friendID)
	if err != nil {
		logger.Warn("StartDirect Error: Friend %s not found: %v", friendID, err)
		return nil, errors.NotFound("Friend", err)
	}

	conv := &entity.Conversation{
		ID:           entity.DirectConversationID(userID, friendID),
		Type:         entity.ConversationDirect,
		Participants: []string{userID, friendID},
		ParticipantInfo: map[string]entity.ParticipantInfo{
			userID:   me.Info(),
			friendID: friend.Info(),
		},
	}

	stored, created, err := uc.convRepo.GetOrCreate(ctx, conv)
	if err != nil {
		logger.Error("StartDirect Error: Failed to create conversation %s: %v", conv.ID, err)
		return nil, err
	}
	if created {
		logger.Info("Conversation %s created by %s", stored.ID, userID)
	}
	return stored, nil
}

func (uc *ConversationUseCase) CreateGroup(ctx context.Context, userID, name string, memberIDs []string) (*entity.Conversation, error) {
	seen := map[string]bool{userID: true}
	participants := []string{userID}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	if len(participants) < 3 {
		return nil, errors.BadRequest("A group needs at least two other members", nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionStartConversation); !allowed {
		return nil, errors.TooManyRequests("Too many new conversations", wait)
	}

	info := make(map[string]entity.ParticipantInfo, len(participants))
	for _, id := range participants {
		user, err := uc.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, errors.NotFound("Member "+id, err)
		}
		info[id] = user.Info()
	}

	conv := &entity.Conversation{
		ID:              "grp_" + newID(),
		Type:            entity.ConversationGroup,
		Name:            strings.TrimSpace(name),
		Participants:    participants,
		ParticipantInfo: info,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		logger.Error("CreateGroup Error: %v", err)
		return nil, err
	}
	return uc.convRepo.GetByID(ctx, conv.ID)
}

// MarkRead records that userID has read the conversation. Only participants
// can mark a conversation read. Failures are logged and dropped; read receipts
// are best effort.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, userID, conversationID string) {
	if _, err := uc.Get(ctx, userID, conversationID); err != nil {
		logger.Warn("MarkRead Error: conversation %s user %s: %v", conversationID, userID, err)
		return
	}
	if err := uc.convRepo.MarkRead(ctx, conversationID, userID); err != nil {
		logger.Warn("MarkRead Error: conversation %s user %s: %v", conversationID, userID, err)
	}
}

func (uc *ConversationUseCase) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := uc.Get(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := uc.convRepo.Delete(ctx, conversationID); err != nil {
		logger.Error("DeleteConversation Error: %v", err)
		return err
	}
	logger.Info("Conversation %s deleted by %s", conversationID, userID)
	return nil
}
