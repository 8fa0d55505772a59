package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

// Client commands.
const (
	CmdOpenThread      = "open_thread"
	CmdCloseThread     = "close_thread"
	CmdSendMessage     = "send_message"
	CmdInput           = "input"
	CmdToggleReaction  = "toggle_reaction"
	CmdDoubleTap       = "double_tap"
	CmdReactionDetails = "reaction_details"
	CmdBannerTap       = "banner_tap"
	CmdBannerDismiss   = "banner_dismiss"
	CmdViewport        = "viewport"
	CmdPing            = "ping"
)

// Server events.
const (
	EventConversations   = "conversations"
	EventMessages        = "messages"
	EventTyping          = "typing"
	EventBanner          = "banner"
	EventBannerDismissed = "banner_dismissed"
	EventReactionDetails = "reaction_details"
	EventError           = "error"
	EventStreamError     = "stream_error"
	EventPong            = "pong"
)

type Command struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Thread    entity.ThreadRef `json:"thread"`
	Text      string           `json:"text,omitempty"`
	GifURL    string           `json:"gif_url,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
	Emoji     string           `json:"emoji,omitempty"`
	AtNewest  *bool            `json:"at_newest,omitempty"`
}

type MessageView struct {
	*entity.Message
	ReactionSummary []ReactionGroup `json:"reaction_summary"`
}

type EventErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Event struct {
	Type          string             `json:"type"`
	RequestID     string             `json:"request_id,omitempty"`
	Thread        *entity.ThreadRef  `json:"thread,omitempty"`
	Conversations []ConversationView `json:"conversations,omitempty"`
	Messages      []MessageView      `json:"messages,omitempty"`
	Scroll        ScrollDecision     `json:"scroll,omitempty"`
	Typing        *TypingState       `json:"typing,omitempty"`
	Banner        *Banner            `json:"banner,omitempty"`
	Reactions     []ReactionDetail   `json:"reactions,omitempty"`
	Stream        string             `json:"stream,omitempty"`
	Error         *EventErrorBody    `json:"error,omitempty"`
}

// EventSink delivers events to the connected client.
type EventSink interface {
	Send(ctx context.Context, ev Event) error
}

func errorEvent(requestID string, err error) Event {
	ev := Event{Type: EventError, RequestID: requestID, Error: &EventErrorBody{Code: "INTERNAL_ERROR", Message: err.Error()}}
	if appErr, ok := errors.AsAppError(err); ok {
		ev.Error.Code = appErr.Code
		ev.Error.Message = appErr.Message
	}
	return ev
}

// SyncService runs the live state of connected clients: the conversation
// list, the open thread with its typing indicator, and notification banners.
type SyncService struct {
	conversations  *ConversationUseCase
	messages       *MessageUseCase
	typing         *TypingUseCase
	reactions      *ReactionUseCase
	notifications  *NotificationUseCase
	convRepo       repository.ConversationRepository
	courtRepo      repository.CourtRepository
	notifRepo      repository.NotificationRepository
	bannerDuration time.Duration
}

func NewSyncService(
	conversations *ConversationUseCase,
	messages *MessageUseCase,
	typing *TypingUseCase,
	reactions *ReactionUseCase,
	notifications *NotificationUseCase,
	convRepo repository.ConversationRepository,
	courtRepo repository.CourtRepository,
	notifRepo repository.NotificationRepository,
	bannerDuration time.Duration,
) *SyncService {
	return &SyncService{
		conversations:  conversations,
		messages:       messages,
		typing:         typing,
		reactions:      reactions,
		notifications:  notifications,
		convRepo:       convRepo,
		courtRepo:      courtRepo,
		notifRepo:      notifRepo,
		bannerDuration: bannerDuration,
	}
}

// Run serves one session until its context ends, commands is closed, or the
// sink fails. All view state is owned by the session loop; writes run in
// their own goroutines and report back through it.
func (svc *SyncService) Run(sess *Session, commands <-chan Command, sink EventSink) error {
	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()

	if svc.notifications != nil {
		go func() {
			if n, err := svc.notifications.PruneStale(ctx, sess.UserID); err == nil && n > 0 {
				sess.Log.Info("Pruned %d stale notifications", n)
			}
		}()
	}

	watcher := NewBannerWatcher(sess.UserID, sess.Viewing, svc.bannerDuration, svc.convRepo, svc.courtRepo, svc.notifRepo)

	s := &syncLoop{
		svc:      svc,
		sess:     sess,
		sink:     sink,
		watcher:  watcher,
		atNewest: true,
		results:  make(chan Event, 16),
		opens:    make(chan entity.ThreadRef, 1),
		typingQ:  make(chan typingWrite, 8),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.run(gctx, commands)
	})
	err := g.Wait()
	s.pending.Wait()

	if errors.IsCanceled(err) {
		return nil
	}
	return err
}

type syncLoop struct {
	svc     *SyncService
	sess    *Session
	sink    EventSink
	watcher *BannerWatcher

	convs  *live.Stream[[]ConversationView]
	thread entity.ThreadRef
	msgs   *live.Stream[[]*entity.Message]
	typers *live.Stream[TypingState]

	prevNewest *entity.Message
	atNewest   bool
	input      InputTracker

	results chan Event
	opens   chan entity.ThreadRef
	typingQ chan typingWrite
	pending sync.WaitGroup
}

type typingWrite struct {
	conversationID string
	typing         bool
}

func chanOf[T any](s *live.Stream[T]) <-chan T {
	if s == nil {
		return nil
	}
	return s.C()
}

func (s *syncLoop) run(ctx context.Context, commands <-chan Command) error {
	s.pending.Add(1)
	go s.typingWorker(ctx)

	var err error
	s.convs, err = s.svc.conversations.WatchConversations(ctx, s.sess.UserID)
	defer func() {
		if s.convs != nil {
			s.convs.Stop()
		}
		s.stopThread(ctx)
		close(s.typingQ)
	}()
	if err != nil {
		return err
	}

	banners := s.watcher.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if err := s.handle(ctx, cmd); err != nil {
				return err
			}

		case views, ok := <-chanOf(s.convs):
			if !ok {
				if err := s.streamEnded(ctx, s.convs.Name(), s.convs.Err()); err != nil {
					return err
				}
				s.convs = nil
				continue
			}
			if err := s.sink.Send(ctx, Event{Type: EventConversations, Conversations: views}); err != nil {
				return err
			}

		case list, ok := <-chanOf(s.msgs):
			if !ok {
				if err := s.streamEnded(ctx, s.msgs.Name(), s.msgs.Err()); err != nil {
					return err
				}
				s.msgs = nil
				continue
			}
			if err := s.deliverMessages(ctx, list); err != nil {
				return err
			}

		case state, ok := <-chanOf(s.typers):
			if !ok {
				if err := s.streamEnded(ctx, s.typers.Name(), s.typers.Err()); err != nil {
					return err
				}
				s.typers = nil
				continue
			}
			thread := s.thread
			if err := s.sink.Send(ctx, Event{Type: EventTyping, Thread: &thread, Typing: &state}); err != nil {
				return err
			}

		case ev, ok := <-banners:
			if !ok {
				banners = nil
				continue
			}
			if err := s.sink.Send(ctx, bannerEvent(ev)); err != nil {
				return err
			}

		case ev := <-s.results:
			if err := s.sink.Send(ctx, ev); err != nil {
				return err
			}

		case thread := <-s.opens:
			if err := s.openThread(ctx, "", thread); err != nil {
				return err
			}
		}
	}
}

func bannerEvent(ev BannerEvent) Event {
	switch ev.Type {
	case BannerStreamError:
		return Event{Type: EventStreamError, Stream: ev.Stream, Error: &EventErrorBody{Code: "STREAM_ERROR", Message: ev.Err.Error()}}
	case BannerDismissed:
		return Event{Type: EventBannerDismissed, Banner: ev.Banner}
	}
	return Event{Type: EventBanner, Banner: ev.Banner}
}

func (s *syncLoop) streamEnded(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	return s.sink.Send(ctx, Event{Type: EventStreamError, Stream: name, Error: &EventErrorBody{Code: "STREAM_ERROR", Message: err.Error()}})
}

func (s *syncLoop) handle(ctx context.Context, cmd Command) error {
	uid := s.sess.UserID

	switch cmd.Type {
	case CmdOpenThread:
		return s.openThread(ctx, cmd.RequestID, cmd.Thread)

	case CmdCloseThread:
		s.stopThread(ctx)
		s.sess.Viewing.Clear()
		return nil

	case CmdPing:
		return s.sink.Send(ctx, Event{Type: EventPong, RequestID: cmd.RequestID})

	case CmdViewport:
		if cmd.AtNewest != nil {
			s.atNewest = *cmd.AtNewest
		}
		return nil

	case CmdInput:
		if s.thread.Kind != entity.ThreadDirect {
			return nil
		}
		if changed, typing := s.input.Update(cmd.Text); changed {
			s.setTyping(ctx, s.thread.ID, typing)
		}
		return nil

	case CmdSendMessage:
		thread := cmd.Thread
		if thread.IsZero() {
			thread = s.thread
		}
		if thread == s.thread && thread.Kind == entity.ThreadDirect && s.input.Reset() {
			s.setTyping(ctx, thread.ID, false)
		}
		input := SendMessageInput{Text: cmd.Text, GifURL: cmd.GifURL}
		s.async(ctx, cmd.RequestID, func() (Event, bool, error) {
			_, err := s.svc.messages.Send(ctx, uid, thread, input)
			return Event{}, false, err
		})
		return nil

	case CmdToggleReaction, CmdDoubleTap:
		thread := s.threadOf(cmd)
		emoji := cmd.Emoji
		if cmd.Type == CmdDoubleTap {
			emoji = DefaultReaction
		}
		s.async(ctx, cmd.RequestID, func() (Event, bool, error) {
			_, err := s.svc.reactions.Toggle(ctx, uid, thread, cmd.MessageID, emoji)
			return Event{}, false, err
		})
		return nil

	case CmdReactionDetails:
		thread := s.threadOf(cmd)
		s.async(ctx, cmd.RequestID, func() (Event, bool, error) {
			details, err := s.svc.reactions.Details(ctx, uid, thread, cmd.MessageID)
			if err != nil {
				return Event{}, false, err
			}
			return Event{Type: EventReactionDetails, RequestID: cmd.RequestID, Thread: &thread, Reactions: details}, true, nil
		})
		return nil

	case CmdBannerTap:
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if thread, ok := s.watcher.Tap(); ok {
				select {
				case s.opens <- thread:
				case <-ctx.Done():
				}
			}
		}()
		return nil

	case CmdBannerDismiss:
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.watcher.Dismiss()
		}()
		return nil
	}

	return s.sink.Send(ctx, errorEvent(cmd.RequestID, errors.BadRequest("Unknown command "+cmd.Type, nil)))
}

func (s *syncLoop) threadOf(cmd Command) entity.ThreadRef {
	if cmd.Thread.IsZero() {
		return s.thread
	}
	return cmd.Thread
}

// async runs op off the loop. A failure becomes an error event; a produced
// event is delivered as is.
func (s *syncLoop) async(ctx context.Context, requestID string, op func() (Event, bool, error)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ev, ok, err := op()
		if err != nil {
			if errors.IsCanceled(err) {
				return
			}
			ev, ok = errorEvent(requestID, err), true
		}
		if !ok {
			return
		}
		select {
		case s.results <- ev:
		case <-ctx.Done():
		}
	}()
}

// setTyping queues a typing flag write. Writes go through one worker so they
// land in the order they were made.
func (s *syncLoop) setTyping(ctx context.Context, conversationID string, typing bool) {
	select {
	case s.typingQ <- typingWrite{conversationID: conversationID, typing: typing}:
	case <-ctx.Done():
		if !typing {
			s.typingQ <- typingWrite{conversationID: conversationID, typing: false}
		}
	}
}

func (s *syncLoop) typingWorker(ctx context.Context) {
	defer s.pending.Done()
	uid, name := s.sess.UserID, s.sess.DisplayName
	for w := range s.typingQ {
		if w.typing {
			if ctx.Err() != nil {
				continue
			}
			_ = s.svc.typing.SetTyping(ctx, uid, name, w.conversationID, true)
			continue
		}
		// Clearing must outlive the session that set the flag.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		_ = s.svc.typing.SetTyping(wctx, uid, name, w.conversationID, false)
		cancel()
	}
}

func (s *syncLoop) openThread(ctx context.Context, requestID string, thread entity.ThreadRef) error {
	if !thread.Valid() {
		return s.sink.Send(ctx, errorEvent(requestID, errors.BadRequest("Invalid thread", nil)))
	}
	s.stopThread(ctx)

	uid := s.sess.UserID
	msgs, err := s.svc.messages.Watch(ctx, uid, thread)
	if err != nil {
		return s.sink.Send(ctx, errorEvent(requestID, err))
	}

	s.thread = thread
	s.msgs = msgs
	s.prevNewest = nil
	s.atNewest = true
	s.sess.Viewing.Set(thread)

	if thread.Kind == entity.ThreadDirect {
		typers, err := s.svc.typing.Watch(ctx, thread.ID, uid)
		if err != nil {
			s.sess.Log.Warn("Typing indicator unavailable for %s: %v", thread, err)
		} else {
			s.typers = typers
		}
		s.markRead(ctx, thread.ID)
	}
	return nil
}

func (s *syncLoop) markRead(ctx context.Context, conversationID string) {
	uid := s.sess.UserID
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.svc.conversations.MarkRead(ctx, uid, conversationID)
	}()
}

func (s *syncLoop) stopThread(ctx context.Context) {
	if s.msgs != nil {
		s.msgs.Stop()
		s.msgs = nil
	}
	if s.typers != nil {
		s.typers.Stop()
		s.typers = nil
	}
	if s.thread.Kind == entity.ThreadDirect && s.input.Reset() {
		s.setTyping(ctx, s.thread.ID, false)
	}
	s.thread = entity.ThreadRef{}
	s.prevNewest = nil
}

func (s *syncLoop) deliverMessages(ctx context.Context, list []*entity.Message) error {
	uid := s.sess.UserID
	decision := DecideScroll(s.prevNewest, list, s.atNewest, uid)

	if len(list) > 0 {
		newest := list[len(list)-1]
		if arrivedAfter(newest, s.prevNewest) && newest.UserID != uid && s.thread.Kind == entity.ThreadDirect {
			s.markRead(ctx, s.thread.ID)
		}
		s.prevNewest = newest
	}
	if decision == ScrollToNewest {
		s.atNewest = true
	}

	views := make([]MessageView, 0, len(list))
	for _, m := range list {
		views = append(views, MessageView{Message: m, ReactionSummary: Summarize(m.Reactions, uid)})
	}
	thread := s.thread
	return s.sink.Send(ctx, Event{Type: EventMessages, Thread: &thread, Messages: views, Scroll: decision})
}
