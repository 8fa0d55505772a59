package usecase

import (
	"context"
	"strings"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

// IdentityLookup reads the identity provider's account record for a uid.
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, uid string) (Identity, error)
}

type UserUseCase struct {
	userRepo   repository.UserRepository
	avatars    AvatarResolver
	identities IdentityLookup
}

// NewUserUseCase builds the profile use case. identities may be nil, in which
// case profiles are created from token claims alone.
func NewUserUseCase(userRepo repository.UserRepository, avatars AvatarResolver, identities IdentityLookup) *UserUseCase {
	if avatars == nil {
		avatars = passthroughAvatars{}
	}
	return &UserUseCase{
		userRepo:   userRepo,
		avatars:    avatars,
		identities: identities,
	}
}

type UpdateProfileInput struct {
	DisplayName  string
	ProfileImage string
}

// EnsureProfile returns the profile of an authenticated user, creating it
// from the token claims on first sight.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, id Identity) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	if id.DisplayName == "" && uc.identities != nil {
		if account, err := uc.identities.LookupIdentity(ctx, id.UserID); err != nil {
			logger.Warn("EnsureProfile Error: account lookup for %s failed: %v", id.UserID, err)
		} else {
			id.DisplayName = account.DisplayName
			if id.Email == "" {
				id.Email = account.Email
			}
		}
	}

	user = &entity.User{
		ID:          id.UserID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Friends:     []string{},
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, "CONFLICT") {
			return uc.userRepo.GetByID(ctx, id.UserID)
		}
		return nil, err
	}
	logger.Info("Created profile for %s", id.UserID)
	return user, nil
}

func (uc *UserUseCase) GetUserProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.ProfileImage = uc.avatars.Resolve(ctx, user.ProfileImage)
	return user, nil
}

// UpdateProfile is the onboarding save. Unlike most writes its failure is
// returned to the caller.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.DisplayName); name != "" {
		user.DisplayName = name
	}
	if input.ProfileImage != "" {
		user.ProfileImage = input.ProfileImage
	}
	if user.DisplayName == "" {
		return nil, errors.BadRequest("Display name is required", nil)
	}
	user.ProfileComplete = true

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Internal("Failed to update user profile", err)
	}
	return user, nil
}

func (uc *UserUseCase) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errors.BadRequest("Cannot befriend yourself", nil)
	}
	return uc.userRepo.Befriend(ctx, userID, friendID)
}
