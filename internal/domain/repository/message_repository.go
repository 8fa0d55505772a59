package repository

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

type MessageRepository interface {
	// Append stores msg and updates the parent thread preview in one commit.
	Append(ctx context.Context, thread entity.ThreadRef, msg *entity.Message, preview entity.MessagePreview) error
	GetByID(ctx context.Context, thread entity.ThreadRef, messageID string) (*entity.Message, error)
	Delete(ctx context.Context, thread entity.ThreadRef, messageID string) error
	// ToggleReaction adds userID to the emoji's reactor set, or removes it when
	// already present, atomically. added reports the resulting membership.
	ToggleReaction(ctx context.Context, thread entity.ThreadRef, messageID, emoji, userID string) (added bool, err error)
	// Watch subscribes to the thread's messages ordered by creation time.
	Watch(ctx context.Context, thread entity.ThreadRef) (live.Source[*entity.Message], error)
}
