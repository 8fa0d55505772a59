package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection("conversations")
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("Conversation", err)
	}
	conv, err := decodeConversation(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return conv, nil
}

func (r *firestoreConversationRepository) FindDirect(ctx context.Context, userA, userB string) (*entity.Conversation, error) {
	convs, err := collect(r.collection().Where("participants", "array-contains", userA).Documents(ctx), decodeConversation)
	if err != nil {
		return nil, errors.FromStore("Conversation", err)
	}
	for _, conv := range convs {
		if conv.Type == entity.ConversationDirect && len(conv.Participants) == 2 && conv.HasParticipant(userB) {
			return conv, nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *firestoreConversationRepository) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	ref := r.collection().Doc(conv.ID)
	conv.Normalize()

	var created bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		doc, err := tx.Get(ref)
		if err == nil {
			existing, err := decodeConversation(doc)
			if err != nil {
				return err
			}
			if !existing.SameMembers(conv.Participants...) {
				return errors.Conflict("Conversation id is taken by other participants", nil)
			}
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}
		created = true
		return tx.Create(ref, conv)
	})
	if err != nil {
		return nil, false, errors.FromStore("Conversation", err)
	}

	stored, err := r.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	conv.Normalize()
	if _, err := r.collection().Doc(conv.ID).Create(ctx, conv); err != nil {
		return errors.FromStore("Conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	_, err := r.collection().Doc(conversationID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"readBy", userID}, Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return errors.FromStore("Conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) Delete(ctx context.Context, id string) error {
	ref := r.collection().Doc(id)
	for _, sub := range []string{"messages", "typing"} {
		if _, err := deleteQuery(ctx, r.client, ref.Collection(sub).Query); err != nil {
			return errors.FromStore("Conversation", err)
		}
	}
	if _, err := ref.Delete(ctx); err != nil {
		return errors.FromStore("Conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) ListAll(ctx context.Context) ([]*entity.Conversation, error) {
	convs, err := collect(r.collection().Documents(ctx), decodeConversation)
	if err != nil {
		return nil, errors.FromStore("Conversation", err)
	}
	return convs, nil
}

// WatchAll listens to the whole collection. Group conversations are not
// indexed by participant, so membership is filtered by the caller.
func (r *firestoreConversationRepository) WatchAll(ctx context.Context) (live.Source[*entity.Conversation], error) {
	return watchQuery(ctx, "conversations", r.collection().Query, decodeConversation), nil
}
