package usecase

import (
	"context"
	"strings"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

type CourtUseCase struct {
	courtRepo repository.CourtRepository
}

func NewCourtUseCase(courtRepo repository.CourtRepository) *CourtUseCase {
	return &CourtUseCase{courtRepo: courtRepo}
}

type CreateCourtInput struct {
	Name    string
	Address string
}

func (uc *CourtUseCase) Create(ctx context.Context, userID string, input CreateCourtInput) (*entity.Court, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.BadRequest("Court name is required", nil)
	}
	court := &entity.Court{
		Name:    name,
		Address: strings.TrimSpace(input.Address),
		Members: []string{userID},
	}
	if err := uc.courtRepo.Create(ctx, court); err != nil {
		logger.Error("CreateCourt Error: %v", err)
		return nil, err
	}
	return court, nil
}

func (uc *CourtUseCase) Get(ctx context.Context, courtID string) (*entity.Court, error) {
	return uc.courtRepo.GetByID(ctx, courtID)
}

// CheckIn adds the user to the court's members, which also subscribes them to
// its chat.
func (uc *CourtUseCase) CheckIn(ctx context.Context, userID, courtID string) (*entity.Court, error) {
	if err := uc.courtRepo.AddMember(ctx, courtID, userID); err != nil {
		return nil, err
	}
	logger.Info("User %s checked in at court %s", userID, courtID)
	return uc.courtRepo.GetByID(ctx, courtID)
}

func (uc *CourtUseCase) CheckOut(ctx context.Context, userID, courtID string) (*entity.Court, error) {
	if err := uc.courtRepo.RemoveMember(ctx, courtID, userID); err != nil {
		return nil, err
	}
	return uc.courtRepo.GetByID(ctx, courtID)
}
