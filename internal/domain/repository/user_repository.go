package repository

import (
	"context"

	"courtside/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// Befriend links two users in both directions. Both must exist.
	Befriend(ctx context.Context, userID, friendID string) error
}
