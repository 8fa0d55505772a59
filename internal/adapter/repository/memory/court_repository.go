package memory

import (
	"context"

	"github.com/google/uuid"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type courtRepository struct {
	store *Store
}

func NewCourtRepository(store *Store) repository.CourtRepository {
	return &courtRepository{store: store}
}

func (r *courtRepository) Create(ctx context.Context, court *entity.Court) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if court.ID == "" {
		court.ID = uuid.New().String()
	}
	now := r.store.stamp()
	if court.UpdatedAt.IsZero() {
		court.UpdatedAt = now
	}
	r.store.courts.put(court, now)
	return nil
}

func (r *courtRepository) GetByID(ctx context.Context, id string) (*entity.Court, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	court, ok := r.store.courts.get(id)
	if !ok {
		return nil, errors.NotFound("Court", nil)
	}
	return court, nil
}

func (r *courtRepository) AddMember(ctx context.Context, courtID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	court, ok := r.store.courts.get(courtID)
	if !ok {
		return errors.NotFound("Court", nil)
	}
	if court.HasMember(userID) {
		return nil
	}
	court.Members = append(court.Members, userID)
	r.store.courts.put(court, r.store.stamp())
	return nil
}

func (r *courtRepository) RemoveMember(ctx context.Context, courtID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	court, ok := r.store.courts.get(courtID)
	if !ok {
		return errors.NotFound("Court", nil)
	}
	members := court.Members[:0]
	for _, m := range court.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	court.Members = members
	r.store.courts.put(court, r.store.stamp())
	return nil
}

func (r *courtRepository) WatchForMember(ctx context.Context, userID string) (live.Source[*entity.Court], error) {
	return watch(r.store, r.store.courts, func(c *entity.Court) bool { return c.HasMember(userID) }), nil
}
