package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type firestoreTypingRepository struct {
	client *firestore.Client
}

func NewFirestoreTypingRepository(client *firestore.Client) repository.TypingRepository {
	return &firestoreTypingRepository{
		client: client,
	}
}

func (r *firestoreTypingRepository) collection(conversationID string) *firestore.CollectionRef {
	return r.client.Collection("conversations").Doc(conversationID).Collection("typing")
}

func (r *firestoreTypingRepository) Set(ctx context.Context, conversationID string, flag *entity.TypingFlag) error {
	// Zero so the server timestamp tag applies.
	flag.UpdatedAt = time.Time{}
	if _, err := r.collection(conversationID).Doc(flag.UserID).Set(ctx, flag); err != nil {
		return errors.FromStore("Typing flag", err)
	}
	return nil
}

func (r *firestoreTypingRepository) Watch(ctx context.Context, conversationID string) (live.Source[*entity.TypingFlag], error) {
	return watchQuery(ctx, "typing:"+conversationID, r.collection(conversationID).Query, decodeTypingFlag), nil
}
