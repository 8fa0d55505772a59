package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type firestoreCourtRepository struct {
	client *firestore.Client
}

func NewFirestoreCourtRepository(client *firestore.Client) repository.CourtRepository {
	return &firestoreCourtRepository{
		client: client,
	}
}

func (r *firestoreCourtRepository) collection() *firestore.CollectionRef {
	return r.client.Collection("courts")
}

func (r *firestoreCourtRepository) Create(ctx context.Context, court *entity.Court) error {
	if court.ID == "" {
		court.ID = uuid.New().String()
	}
	if court.UpdatedAt.IsZero() {
		court.UpdatedAt = time.Now()
	}
	if court.Members == nil {
		court.Members = []string{}
	}
	if _, err := r.collection().Doc(court.ID).Create(ctx, court); err != nil {
		return errors.FromStore("Court", err)
	}
	return nil
}

func (r *firestoreCourtRepository) GetByID(ctx context.Context, id string) (*entity.Court, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("Court", err)
	}
	court, err := decodeCourt(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse court data", err)
	}
	return court, nil
}

func (r *firestoreCourtRepository) AddMember(ctx context.Context, courtID, userID string) error {
	_, err := r.collection().Doc(courtID).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayUnion(userID)},
	})
	if err != nil {
		return errors.FromStore("Court", err)
	}
	return nil
}

func (r *firestoreCourtRepository) RemoveMember(ctx context.Context, courtID, userID string) error {
	_, err := r.collection().Doc(courtID).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayRemove(userID)},
	})
	if err != nil {
		return errors.FromStore("Court", err)
	}
	return nil
}

func (r *firestoreCourtRepository) WatchForMember(ctx context.Context, userID string) (live.Source[*entity.Court], error) {
	query := r.collection().Where("members", "array-contains", userID)
	return watchQuery(ctx, "courts:"+userID, query, decodeCourt), nil
}
