package repository

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

type TypingRepository interface {
	Set(ctx context.Context, conversationID string, flag *entity.TypingFlag) error
	Watch(ctx context.Context, conversationID string) (live.Source[*entity.TypingFlag], error)
}
