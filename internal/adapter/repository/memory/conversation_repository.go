package memory

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type conversationRepository struct {
	store *Store
}

func NewConversationRepository(store *Store) repository.ConversationRepository {
	return &conversationRepository{store: store}
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	conv, ok := r.store.conversations.get(id)
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv, nil
}

func (r *conversationRepository) FindDirect(ctx context.Context, userA, userB string) (*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matches := r.store.conversations.list(func(c *entity.Conversation) bool {
		return c.Type == entity.ConversationDirect && len(c.Participants) == 2 &&
			c.HasParticipant(userA) && c.HasParticipant(userB)
	})
	if len(matches) == 0 {
		return nil, errors.NotFound("Conversation", nil)
	}
	return matches[0], nil
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.conversations.get(conv.ID); ok {
		if !existing.SameMembers(conv.Participants...) {
			return nil, false, errors.Conflict("Conversation id is taken by other participants", nil)
		}
		return existing, false, nil
	}
	r.insert(conv)
	stored, _ := r.store.conversations.get(conv.ID)
	return stored, true, nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.conversations.get(conv.ID); ok {
		return errors.Conflict("Conversation already exists", nil)
	}
	r.insert(conv)
	return nil
}

func (r *conversationRepository) insert(conv *entity.Conversation) {
	now := r.store.stamp()
	conv.Normalize()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	r.store.conversations.put(conv, now)
}

func (r *conversationRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	conv, ok := r.store.conversations.get(conversationID)
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	now := r.store.stamp()
	conv.ReadBy[userID] = now
	r.store.conversations.put(conv, now)
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.stamp()
	if msgs, ok := r.store.messages[entity.ThreadRef{Kind: entity.ThreadDirect, ID: id}]; ok {
		msgs.clear(now)
	}
	if flags, ok := r.store.typing[id]; ok {
		flags.clear(now)
	}
	r.store.conversations.remove(id, now)
	return nil
}

func (r *conversationRepository) ListAll(ctx context.Context) ([]*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.conversations.list(nil), nil
}

func (r *conversationRepository) WatchAll(ctx context.Context) (live.Source[*entity.Conversation], error) {
	return watch(r.store, r.store.conversations, nil), nil
}
