package memory

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users.get(user.ID); ok {
		return errors.Conflict("User already exists", nil)
	}
	now := r.store.stamp()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.users.put(user, now)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users.get(id)
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matches := r.store.users.list(func(u *entity.User) bool { return u.Email == email })
	if len(matches) == 0 {
		return nil, errors.NotFound("User", nil)
	}
	return matches[0], nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users.get(user.ID); !ok {
		return errors.NotFound("User", nil)
	}
	now := r.store.stamp()
	user.UpdatedAt = now
	r.store.users.put(user, now)
	return nil
}

func (r *userRepository) Befriend(ctx context.Context, userID, friendID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.users.get(userID)
	if !ok {
		return errors.NotFound("User", nil)
	}
	b, ok := r.store.users.get(friendID)
	if !ok {
		return errors.NotFound("Friend", nil)
	}
	now := r.store.stamp()
	for _, pair := range [][2]*entity.User{{a, b}, {b, a}} {
		if !containsID(pair[0].Friends, pair[1].ID) {
			pair[0].Friends = append(pair[0].Friends, pair[1].ID)
		}
		pair[0].UpdatedAt = now
		r.store.users.put(pair[0], now)
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
