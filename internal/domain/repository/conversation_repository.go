package repository

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// FindDirect searches for an existing direct conversation between two users,
	// including ones created before deterministic ids were used.
	FindDirect(ctx context.Context, userA, userB string) (*entity.Conversation, error)
	// GetOrCreate atomically returns the conversation stored under conv.ID or
	// creates it. created reports whether this call wrote it.
	GetOrCreate(ctx context.Context, conv *entity.Conversation) (stored *entity.Conversation, created bool, err error)
	Create(ctx context.Context, conv *entity.Conversation) error
	MarkRead(ctx context.Context, conversationID, userID string) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*entity.Conversation, error)
	// WatchAll subscribes to the whole collection; membership filtering is the
	// caller's job.
	WatchAll(ctx context.Context) (live.Source[*entity.Conversation], error)
}
