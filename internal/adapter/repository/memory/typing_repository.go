package memory

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
)

type typingRepository struct {
	store *Store
}

func NewTypingRepository(store *Store) repository.TypingRepository {
	return &typingRepository{store: store}
}

func (r *typingRepository) Set(ctx context.Context, conversationID string, flag *entity.TypingFlag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.stamp()
	flag.UpdatedAt = now
	r.store.typingTable(conversationID).put(flag, now)
	return nil
}

func (r *typingRepository) Watch(ctx context.Context, conversationID string) (live.Source[*entity.TypingFlag], error) {
	r.store.mu.Lock()
	table := r.store.typingTable(conversationID)
	r.store.mu.Unlock()
	return watch(r.store, table, nil), nil
}
