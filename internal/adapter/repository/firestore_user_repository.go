package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/errors"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Friends == nil {
		user.Friends = []string{}
	}
	if _, err := r.client.Collection("users").Doc(user.ID).Create(ctx, user); err != nil {
		return errors.FromStore("User", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("User", err)
	}
	user, err := decodeUser(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return user, nil
}

func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	iter := r.client.Collection("users").Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("User", nil)
	}
	if err != nil {
		return nil, errors.FromStore("User", err)
	}
	user, err := decodeUser(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return user, nil
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	updateData := map[string]interface{}{
		"displayName":     user.DisplayName,
		"profileImage":    user.ProfileImage,
		"friends":         user.Friends,
		"profileComplete": user.ProfileComplete,
		"updatedAt":       time.Now(),
	}

	// Skip empty strings so a partial update never clears stored values.
	clean := make(map[string]interface{}, len(updateData))
	for key, value := range updateData {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		if v, ok := value.([]string); ok && v == nil {
			continue
		}
		clean[key] = value
	}

	if _, err := r.client.Collection("users").Doc(user.ID).Set(ctx, clean, firestore.MergeAll); err != nil {
		return errors.FromStore("User", err)
	}
	return nil
}

func (r *firestoreUserRepository) Befriend(ctx context.Context, userID, friendID string) error {
	users := r.client.Collection("users")
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(users.Doc(userID)); err != nil {
			return err
		}
		if _, err := tx.Get(users.Doc(friendID)); err != nil {
			return errors.FromStore("Friend", err)
		}
		now := time.Now()
		if err := tx.Update(users.Doc(userID), []firestore.Update{
			{Path: "friends", Value: firestore.ArrayUnion(friendID)},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		return tx.Update(users.Doc(friendID), []firestore.Update{
			{Path: "friends", Value: firestore.ArrayUnion(userID)},
			{Path: "updatedAt", Value: now},
		})
	})
	return errors.FromStore("User", err)
}
