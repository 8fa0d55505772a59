package repository

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

type CourtRepository interface {
	Create(ctx context.Context, court *entity.Court) error
	GetByID(ctx context.Context, id string) (*entity.Court, error)
	AddMember(ctx context.Context, courtID, userID string) error
	RemoveMember(ctx context.Context, courtID, userID string) error
	// WatchForMember subscribes to the courts userID is a member of.
	WatchForMember(ctx context.Context, userID string) (live.Source[*entity.Court], error)
}
