package usecase

import (
	"context"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/pkg/errors"
)

// threadAccess checks that a user may read and write a thread: participants
// for conversations, checked-in members for court chats.
type threadAccess struct {
	convRepo  repository.ConversationRepository
	courtRepo repository.CourtRepository
}

func (a threadAccess) check(ctx context.Context, userID string, thread entity.ThreadRef) error {
	if !thread.Valid() {
		return errors.BadRequest("Invalid thread", nil)
	}

	switch thread.Kind {
	case entity.ThreadDirect:
		conv, err := a.convRepo.GetByID(ctx, thread.ID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
	case entity.ThreadCourt:
		court, err := a.courtRepo.GetByID(ctx, thread.ID)
		if err != nil {
			return err
		}
		if !court.HasMember(userID) {
			return errors.Forbidden("Check in to this court to join its chat", nil)
		}
	}
	return nil
}

// displayName looks a user up and falls back to the id when the profile is
// missing.
func displayName(ctx context.Context, users repository.UserRepository, userID string) string {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	return user.Name()
}
