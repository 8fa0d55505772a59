package memory

import (
	"context"

	"github.com/google/uuid"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) repository.MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) Append(ctx context.Context, thread entity.ThreadRef, msg *entity.Message, preview entity.MessagePreview) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.stamp()

	switch thread.Kind {
	case entity.ThreadDirect:
		conv, ok := r.store.conversations.get(thread.ID)
		if !ok {
			return errors.NotFound("Conversation", nil)
		}
		conv.LastMessage = preview.Text
		conv.LastMessageType = preview.Type
		conv.LastMessageSenderID = preview.SenderID
		conv.UpdatedAt = now
		defer r.store.conversations.put(conv, now)
	case entity.ThreadCourt:
		court, ok := r.store.courts.get(thread.ID)
		if !ok {
			return errors.NotFound("Court", nil)
		}
		court.LastMessage = preview.Text
		court.LastMessageType = preview.Type
		court.LastMessageSenderID = preview.SenderID
		court.LastMessageSenderName = preview.SenderName
		court.UpdatedAt = now
		defer r.store.courts.put(court, now)
	default:
		return errors.BadRequest("Unknown thread kind", nil)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = now
	msg.Normalize()
	r.store.messageTable(thread).put(msg, now)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, thread entity.ThreadRef, messageID string) (*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	msg, ok := r.store.messageTable(thread).get(messageID)
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return msg, nil
}

func (r *messageRepository) Delete(ctx context.Context, thread entity.ThreadRef, messageID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if !r.store.messageTable(thread).remove(messageID, r.store.stamp()) {
		return errors.NotFound("Message", nil)
	}
	return nil
}

func (r *messageRepository) ToggleReaction(ctx context.Context, thread entity.ThreadRef, messageID, emoji, userID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table := r.store.messageTable(thread)
	msg, ok := table.get(messageID)
	if !ok {
		return false, errors.NotFound("Message", nil)
	}

	added := true
	users := msg.Reactions[emoji]
	for i, u := range users {
		if u == userID {
			users = append(users[:i], users[i+1:]...)
			added = false
			break
		}
	}
	if added {
		users = append(users, userID)
	}
	if len(users) == 0 {
		delete(msg.Reactions, emoji)
	} else {
		msg.Reactions[emoji] = users
	}

	table.put(msg, r.store.stamp())
	return added, nil
}

func (r *messageRepository) Watch(ctx context.Context, thread entity.ThreadRef) (live.Source[*entity.Message], error) {
	r.store.mu.Lock()
	table := r.store.messageTable(thread)
	r.store.mu.Unlock()
	return watch(r.store, table, nil), nil
}
