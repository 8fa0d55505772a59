package usecase

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/infrastructure/ratelimit"
	"courtside/pkg/errors"
	"courtside/pkg/logger"
)

// ReactionEmojis is the fixed reaction palette, in display order.
var ReactionEmojis = []string{"❤️", "😂", "👍", "🔥", "🏀", "😮"}

// DefaultReaction is toggled by a double tap.
const DefaultReaction = "❤️"

const unknownUserName = "Unknown"

func IsReactionEmoji(emoji string) bool {
	for _, e := range ReactionEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

// ToggleUser returns a copy of reactions with userID added to emoji's set, or
// removed when already present. Emoji keys left empty are dropped. Applying it
// twice with the same arguments yields the original reactions.
func ToggleUser(reactions map[string][]string, emoji, userID string) map[string][]string {
	out := make(map[string][]string, len(reactions)+1)
	for e, users := range reactions {
		out[e] = append([]string(nil), users...)
	}

	users := out[emoji]
	for i, u := range users {
		if u == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(out, emoji)
			} else {
				out[emoji] = users
			}
			return out
		}
	}
	out[emoji] = append(users, userID)
	return out
}

type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
	Mine  bool     `json:"mine"`
}

// Summarize aggregates a reaction map for display: palette order first, then
// any other emoji alphabetically. Empty sets are omitted.
func Summarize(reactions map[string][]string, viewerID string) []ReactionGroup {
	emojis := make([]string, 0, len(reactions))
	for e, users := range reactions {
		if len(users) > 0 {
			emojis = append(emojis, e)
		}
	}
	rank := func(e string) int {
		for i, p := range ReactionEmojis {
			if p == e {
				return i
			}
		}
		return len(ReactionEmojis)
	}
	sort.Slice(emojis, func(i, j int) bool {
		ri, rj := rank(emojis[i]), rank(emojis[j])
		if ri != rj {
			return ri < rj
		}
		return emojis[i] < emojis[j]
	})

	groups := make([]ReactionGroup, 0, len(emojis))
	for _, e := range emojis {
		users := reactions[e]
		g := ReactionGroup{Emoji: e, Count: len(users), Users: append([]string(nil), users...)}
		for _, u := range users {
			if u == viewerID {
				g.Mine = true
				break
			}
		}
		groups = append(groups, g)
	}
	return groups
}

type Reactor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type ReactionDetail struct {
	Emoji    string    `json:"emoji"`
	Reactors []Reactor `json:"reactors"`
}

type ReactionUseCase struct {
	msgRepo       repository.MessageRepository
	userRepo      repository.UserRepository
	access        threadAccess
	notifications *NotificationUseCase
	rateLimiter   *ratelimit.RateLimiter
}

func NewReactionUseCase(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	courtRepo repository.CourtRepository,
	userRepo repository.UserRepository,
	notifications *NotificationUseCase,
	rateLimiter *ratelimit.RateLimiter,
) *ReactionUseCase {
	return &ReactionUseCase{
		msgRepo:       msgRepo,
		userRepo:      userRepo,
		access:        threadAccess{convRepo: convRepo, courtRepo: courtRepo},
		notifications: notifications,
		rateLimiter:   rateLimiter,
	}
}

// Toggle flips userID's emoji reaction on a message. Adding a reaction to
// another user's message notifies its author.
func (uc *ReactionUseCase) Toggle(ctx context.Context, userID string, thread entity.ThreadRef, messageID, emoji string) (bool, error) {
	if !IsReactionEmoji(emoji) {
		return false, errors.BadRequest("Unsupported reaction", nil)
	}
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionReaction); !allowed {
		return false, errors.TooManyRequests("You are reacting too quickly", wait)
	}
	if err := uc.access.check(ctx, userID, thread); err != nil {
		return false, err
	}

	added, err := uc.msgRepo.ToggleReaction(ctx, thread, messageID, emoji, userID)
	if err != nil {
		logger.Error("ToggleReaction Error: message %s: %v", messageID, err)
		return false, err
	}
	currentMetrics().ReactionToggled(added)

	if added {
		uc.notifyAuthor(ctx, userID, thread, messageID, emoji)
	}
	return added, nil
}

// DoubleTap toggles the default reaction.
func (uc *ReactionUseCase) DoubleTap(ctx context.Context, userID string, thread entity.ThreadRef, messageID string) (bool, error) {
	return uc.Toggle(ctx, userID, thread, messageID, DefaultReaction)
}

func (uc *ReactionUseCase) notifyAuthor(ctx context.Context, actorID string, thread entity.ThreadRef, messageID, emoji string) {
	if uc.notifications == nil {
		return
	}
	msg, err := uc.msgRepo.GetByID(ctx, thread, messageID)
	if err != nil {
		logger.Warn("ReactionNotification Error: message %s: %v", messageID, err)
		return
	}
	if msg.UserID == actorID {
		return
	}
	n := &entity.Notification{
		UserID:     msg.UserID,
		Type:       entity.NotificationReaction,
		ActorID:    actorID,
		ActorName:  displayName(ctx, uc.userRepo, actorID),
		ThreadKind: thread.Kind,
		ThreadID:   thread.ID,
		MessageID:  messageID,
		Emoji:      emoji,
		Text:       msg.PreviewText(),
	}
	if err := uc.notifications.Notify(ctx, n); err != nil {
		logger.Warn("ReactionNotification Error: %v", err)
	}
}

// Details resolves every reacting user to a display name. Lookups run
// concurrently and are joined before returning; users that cannot be found
// are shown as "Unknown".
func (uc *ReactionUseCase) Details(ctx context.Context, userID string, thread entity.ThreadRef, messageID string) ([]ReactionDetail, error) {
	if err := uc.access.check(ctx, userID, thread); err != nil {
		return nil, err
	}
	msg, err := uc.msgRepo.GetByID(ctx, thread, messageID)
	if err != nil {
		return nil, err
	}

	groups := Summarize(msg.Reactions, userID)

	var ids []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, u := range g.Users {
			if !seen[u] {
				seen[u] = true
				ids = append(ids, u)
			}
		}
	}

	names := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			user, err := uc.userRepo.GetByID(gctx, id)
			if err != nil {
				if errors.IsCanceled(err) {
					return err
				}
				names[i] = unknownUserName
				return nil
			}
			names[i] = user.Name()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]string, len(ids))
	for i, id := range ids {
		byID[id] = names[i]
	}

	details := make([]ReactionDetail, 0, len(groups))
	for _, grp := range groups {
		d := ReactionDetail{Emoji: grp.Emoji, Reactors: make([]Reactor, 0, len(grp.Users))}
		for _, u := range grp.Users {
			d.Reactors = append(d.Reactors, Reactor{UserID: u, Name: byID[u]})
		}
		details = append(details, d)
	}
	return details, nil
}
