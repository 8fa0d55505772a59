package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
)

// ViewingContext is the thread a session is currently looking at. Thread
// screens set it; the banner watcher reads it to suppress banners for the
// open thread.
type ViewingContext struct {
	mu     sync.RWMutex
	thread entity.ThreadRef
}

func (v *ViewingContext) Set(thread entity.ThreadRef) {
	v.mu.Lock()
	v.thread = thread
	v.mu.Unlock()
}

func (v *ViewingContext) Clear() {
	v.Set(entity.ThreadRef{})
}

func (v *ViewingContext) Current() entity.ThreadRef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.thread
}

const (
	BannerDirect   = "direct"
	BannerCourt    = "court"
	BannerReaction = "reaction"
)

type Banner struct {
	ID     string           `json:"id"`
	Kind   string           `json:"kind"`
	Title  string           `json:"title"`
	Body   string           `json:"body"`
	Thread entity.ThreadRef `json:"thread"`
}

type BannerEventType string

const (
	BannerShown       BannerEventType = "banner"
	BannerDismissed   BannerEventType = "banner_dismissed"
	BannerStreamError BannerEventType = "stream_error"
)

type BannerEvent struct {
	Type   BannerEventType
	Banner *Banner
	Stream string
	Err    error
}

// seenTracker holds the last seen timestamp per document of one source. The
// first snapshot is a baseline and never raises a banner.
type seenTracker struct {
	baselined bool
	lastSeen  map[string]time.Time
	// unseenIsBaseline treats a document's first appearance after the
	// baseline as baseline too, e.g. a court the user just checked in to.
	unseenIsBaseline bool
}

func newSeenTracker(unseenIsBaseline bool) *seenTracker {
	return &seenTracker{lastSeen: make(map[string]time.Time), unseenIsBaseline: unseenIsBaseline}
}

// fresh reports whether ts is strictly newer than what was last seen for id
// and records it.
func (t *seenTracker) fresh(id string, ts time.Time) bool {
	prev, known := t.lastSeen[id]
	if known && !ts.After(prev) {
		return false
	}
	t.lastSeen[id] = ts
	if !known && t.unseenIsBaseline {
		return false
	}
	return ts.After(prev)
}

func (t *seenTracker) forget(id string) {
	delete(t.lastSeen, id)
}

type bannerCmd struct {
	tap   bool
	reply chan entity.ThreadRef
}

// BannerWatcher raises transient banners for new direct messages, court chat
// messages and notifications of one user. All banner state lives in the Run
// goroutine.
type BannerWatcher struct {
	userID    string
	viewing   *ViewingContext
	duration  time.Duration
	convRepo  repository.ConversationRepository
	courtRepo repository.CourtRepository
	notifRepo repository.NotificationRepository

	events chan BannerEvent
	cmds   chan bannerCmd
	done   chan struct{}
	seq    int
}

func NewBannerWatcher(
	userID string,
	viewing *ViewingContext,
	duration time.Duration,
	convRepo repository.ConversationRepository,
	courtRepo repository.CourtRepository,
	notifRepo repository.NotificationRepository,
) *BannerWatcher {
	return &BannerWatcher{
		userID:    userID,
		viewing:   viewing,
		duration:  duration,
		convRepo:  convRepo,
		courtRepo: courtRepo,
		notifRepo: notifRepo,
		events:    make(chan BannerEvent, 16),
		cmds:      make(chan bannerCmd),
		done:      make(chan struct{}),
	}
}

// Events delivers banner lifecycle events. It is closed when Run returns.
func (w *BannerWatcher) Events() <-chan BannerEvent {
	return w.events
}

// Tap dismisses the current banner and returns the thread it points at.
func (w *BannerWatcher) Tap() (entity.ThreadRef, bool) {
	reply := make(chan entity.ThreadRef, 1)
	select {
	case w.cmds <- bannerCmd{tap: true, reply: reply}:
	case <-w.done:
		return entity.ThreadRef{}, false
	}
	thread := <-reply
	return thread, !thread.IsZero()
}

func (w *BannerWatcher) Dismiss() {
	select {
	case w.cmds <- bannerCmd{}:
	case <-w.done:
	}
}

// Run watches until ctx is canceled. Streams that fail are reported as
// stream_error events; the others keep running.
func (w *BannerWatcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer close(w.done)

	convSrc, err := w.convRepo.WatchAll(ctx)
	if err != nil {
		return err
	}
	convs := live.Open(ctx, "banner-conversations:"+w.userID, convSrc)
	defer convs.Stop()

	courtSrc, err := w.courtRepo.WatchForMember(ctx, w.userID)
	if err != nil {
		return err
	}
	courts := live.Open(ctx, "banner-courts:"+w.userID, courtSrc)
	defer courts.Stop()

	notifSrc, err := w.notifRepo.Watch(ctx, w.userID)
	if err != nil {
		return err
	}
	notifs := live.Open(ctx, "banner-notifications:"+w.userID, notifSrc)
	defer notifs.Stop()

	convSeen := newSeenTracker(false)
	courtSeen := newSeenTracker(true)
	notifSeen := newSeenTracker(false)

	convC, courtC, notifC := convs.C(), courts.C(), notifs.C()

	var (
		current *Banner
		timer   *time.Timer
		expire  <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			expire = nil
		}
	}
	defer stopTimer()

	emit := func(ev BannerEvent) bool {
		select {
		case w.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	show := func(b *Banner) bool {
		if b == nil {
			return true
		}
		if w.viewing != nil && w.viewing.Current() == b.Thread {
			currentMetrics().BannerSuppressed("viewing")
			return true
		}
		w.seq++
		b.ID = fmt.Sprintf("%s-%d", w.userID, w.seq)
		current = b
		stopTimer()
		timer = time.NewTimer(w.duration)
		expire = timer.C
		currentMetrics().BannerShown(b.Kind)
		return emit(BannerEvent{Type: BannerShown, Banner: b})
	}
	dismiss := func() bool {
		stopTimer()
		if current == nil {
			return true
		}
		b := current
		current = nil
		return emit(BannerEvent{Type: BannerDismissed, Banner: b})
	}
	streamFailed := func(s interface {
		Name() string
		Err() error
	}) bool {
		if err := s.Err(); err != nil {
			return emit(BannerEvent{Type: BannerStreamError, Stream: s.Name(), Err: err})
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-convC:
			if !ok {
				convC = nil
				if !streamFailed(convs) {
					return nil
				}
				continue
			}
			for _, b := range w.conversationBanners(convSeen, snap) {
				if !show(b) {
					return nil
				}
			}

		case snap, ok := <-courtC:
			if !ok {
				courtC = nil
				if !streamFailed(courts) {
					return nil
				}
				continue
			}
			for _, b := range w.courtBanners(courtSeen, snap) {
				if !show(b) {
					return nil
				}
			}

		case snap, ok := <-notifC:
			if !ok {
				notifC = nil
				if !streamFailed(notifs) {
					return nil
				}
				continue
			}
			for _, b := range w.notificationBanners(notifSeen, snap) {
				if !show(b) {
					return nil
				}
			}

		case <-expire:
			timer = nil
			expire = nil
			if !dismiss() {
				return nil
			}

		case cmd := <-w.cmds:
			var target entity.ThreadRef
			if cmd.tap && current != nil {
				target = current.Thread
			}
			if cmd.reply != nil {
				cmd.reply <- target
			}
			if !dismiss() {
				return nil
			}
		}
	}
}

func (w *BannerWatcher) conversationBanners(seen *seenTracker, snap live.Snapshot[*entity.Conversation]) []*Banner {
	if !seen.baselined {
		for _, conv := range snap.Docs {
			if conv.HasParticipant(w.userID) {
				seen.lastSeen[conv.ID] = conv.UpdatedAt
			}
		}
		seen.baselined = true
		return nil
	}

	var banners []*Banner
	for _, ch := range snap.Changes {
		conv := ch.Doc
		if ch.Kind == live.Removed || !conv.HasParticipant(w.userID) {
			seen.forget(ch.ID)
			continue
		}
		if !seen.fresh(conv.ID, conv.UpdatedAt) {
			continue
		}
		if conv.LastMessageSenderID == "" {
			continue
		}
		if conv.LastMessageSenderID == w.userID {
			currentMetrics().BannerSuppressed("self")
			continue
		}
		banners = append(banners, directBanner(conv))
	}
	return banners
}

func directBanner(conv *entity.Conversation) *Banner {
	sender := participantName(conv, conv.LastMessageSenderID)
	title := sender
	if conv.Type == entity.ConversationGroup && conv.Name != "" {
		title = conv.Name
	}
	return &Banner{
		Kind:   BannerDirect,
		Title:  title,
		Body:   sender + ": " + previewText(conv.LastMessage, conv.LastMessageType),
		Thread: conv.Thread(),
	}
}

func (w *BannerWatcher) courtBanners(seen *seenTracker, snap live.Snapshot[*entity.Court]) []*Banner {
	if !seen.baselined {
		for _, court := range snap.Docs {
			seen.lastSeen[court.ID] = court.UpdatedAt
		}
		seen.baselined = true
		return nil
	}

	var banners []*Banner
	for _, ch := range snap.Changes {
		court := ch.Doc
		if ch.Kind == live.Removed {
			seen.forget(ch.ID)
			continue
		}
		if !seen.fresh(court.ID, court.UpdatedAt) {
			continue
		}
		if court.LastMessageSenderID == "" {
			continue
		}
		if court.LastMessageSenderID == w.userID {
			currentMetrics().BannerSuppressed("self")
			continue
		}
		sender := court.LastMessageSenderName
		if sender == "" {
			sender = court.LastMessageSenderID
		}
		banners = append(banners, &Banner{
			Kind:   BannerCourt,
			Title:  court.Name,
			Body:   sender + ": " + previewText(court.LastMessage, court.LastMessageType),
			Thread: court.Thread(),
		})
	}
	return banners
}

func (w *BannerWatcher) notificationBanners(seen *seenTracker, snap live.Snapshot[*entity.Notification]) []*Banner {
	if !seen.baselined {
		for _, n := range snap.Docs {
			seen.lastSeen[n.ID] = n.CreatedAt
		}
		seen.baselined = true
		return nil
	}

	var banners []*Banner
	for _, ch := range snap.Changes {
		n := ch.Doc
		if ch.Kind == live.Removed {
			seen.forget(ch.ID)
			continue
		}
		if !seen.fresh(n.ID, n.CreatedAt) {
			continue
		}
		if n.ActorID == w.userID || n.Type != entity.NotificationReaction {
			continue
		}
		actor := n.ActorName
		if actor == "" {
			actor = n.ActorID
		}
		banners = append(banners, &Banner{
			Kind:   BannerReaction,
			Title:  actor,
			Body:   fmt.Sprintf("%s reacted %s to your message", actor, n.Emoji),
			Thread: n.Thread(),
		})
	}
	return banners
}

func previewText(text, kind string) string {
	if kind == entity.MessageGif {
		return "sent a GIF"
	}
	return text
}
