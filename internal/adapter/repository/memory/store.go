// Package memory is an in-process document store with live listeners. It
// backs the "memory" store driver and the use case tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
)

// Store holds every collection behind one write lock, so multi-document
// writes commit atomically, like a batched write would.
type Store struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time

	users         *table[*entity.User]
	conversations *table[*entity.Conversation]
	courts        *table[*entity.Court]
	messages      map[entity.ThreadRef]*table[*entity.Message]
	typing        map[string]*table[*entity.TypingFlag]
	notifications map[string]*table[*entity.Notification]
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now: now,
		users: newTable(
			func(u *entity.User) string { return u.ID },
			func(u *entity.User) *entity.User {
				cp := *u
				cp.Friends = append([]string(nil), u.Friends...)
				return &cp
			},
			func(a, b *entity.User) bool { return a.ID < b.ID },
		),
		conversations: newTable(
			func(c *entity.Conversation) string { return c.ID },
			(*entity.Conversation).Clone,
			func(a, b *entity.Conversation) bool {
				if !a.UpdatedAt.Equal(b.UpdatedAt) {
					return a.UpdatedAt.After(b.UpdatedAt)
				}
				return a.ID < b.ID
			},
		),
		courts: newTable(
			func(c *entity.Court) string { return c.ID },
			(*entity.Court).Clone,
			func(a, b *entity.Court) bool {
				if !a.UpdatedAt.Equal(b.UpdatedAt) {
					return a.UpdatedAt.After(b.UpdatedAt)
				}
				return a.ID < b.ID
			},
		),
		messages:      make(map[entity.ThreadRef]*table[*entity.Message]),
		typing:        make(map[string]*table[*entity.TypingFlag]),
		notifications: make(map[string]*table[*entity.Notification]),
	}
}

// stamp plays the role of the server-assigned write timestamp: strictly
// increasing within the store. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) messageTable(thread entity.ThreadRef) *table[*entity.Message] {
	t, ok := s.messages[thread]
	if !ok {
		t = newTable(
			func(m *entity.Message) string { return m.ID },
			(*entity.Message).Clone,
			func(a, b *entity.Message) bool {
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.Before(b.CreatedAt)
				}
				return a.ID < b.ID
			},
		)
		s.messages[thread] = t
	}
	return t
}

func (s *Store) typingTable(conversationID string) *table[*entity.TypingFlag] {
	t, ok := s.typing[conversationID]
	if !ok {
		t = newTable(
			func(f *entity.TypingFlag) string { return f.UserID },
			func(f *entity.TypingFlag) *entity.TypingFlag { cp := *f; return &cp },
			func(a, b *entity.TypingFlag) bool { return a.UserID < b.UserID },
		)
		s.typing[conversationID] = t
	}
	return t
}

func (s *Store) notificationTable(userID string) *table[*entity.Notification] {
	t, ok := s.notifications[userID]
	if !ok {
		t = newTable(
			func(n *entity.Notification) string { return n.ID },
			func(n *entity.Notification) *entity.Notification { cp := *n; return &cp },
			func(a, b *entity.Notification) bool {
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.After(b.CreatedAt)
				}
				return a.ID < b.ID
			},
		)
		s.notifications[userID] = t
	}
	return t
}

// watch registers a listener on t under the store lock.
func watch[T any](s *Store, t *table[T], filter func(T) bool) live.Source[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := t.subscribe(filter)
	sub.detach = func() {
		s.mu.Lock()
		delete(t.subs, sub)
		s.mu.Unlock()
	}
	return sub
}

type table[T any] struct {
	docs  map[string]T
	id    func(T) string
	clone func(T) T
	less  func(a, b T) bool
	subs  map[*subscription[T]]struct{}
}

func newTable[T any](id func(T) string, clone func(T) T, less func(a, b T) bool) *table[T] {
	return &table[T]{
		docs:  make(map[string]T),
		id:    id,
		clone: clone,
		less:  less,
		subs:  make(map[*subscription[T]]struct{}),
	}
}

func (t *table[T]) get(id string) (T, bool) {
	doc, ok := t.docs[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(doc), true
}

func (t *table[T]) list(filter func(T) bool) []T {
	out := make([]T, 0, len(t.docs))
	for _, doc := range t.docs {
		if filter == nil || filter(doc) {
			out = append(out, t.clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.less(out[i], out[j]) })
	return out
}

func (t *table[T]) put(doc T, at time.Time) {
	stored := t.clone(doc)
	t.docs[t.id(stored)] = stored
	t.publish(t.id(stored), stored, false, at)
}

func (t *table[T]) remove(id string, at time.Time) bool {
	doc, ok := t.docs[id]
	if !ok {
		return false
	}
	delete(t.docs, id)
	t.publish(id, doc, true, at)
	return true
}

// clear removes every document, notifying listeners of each removal.
func (t *table[T]) clear(at time.Time) {
	for id := range t.docs {
		t.remove(id, at)
	}
}

func (t *table[T]) publish(id string, doc T, removed bool, at time.Time) {
	for sub := range t.subs {
		matches := !removed && (sub.filter == nil || sub.filter(doc))
		known := sub.known[id]

		var kind live.ChangeKind
		switch {
		case matches && known:
			kind = live.Modified
		case matches:
			kind = live.Added
			sub.known[id] = true
		case known:
			kind = live.Removed
			delete(sub.known, id)
		default:
			continue
		}

		sub.push(live.Snapshot[T]{
			Docs:     t.list(sub.filter),
			Changes:  []live.Change[T]{{Kind: kind, ID: id, Doc: t.clone(doc)}},
			ReadTime: at,
		})
	}
}

func (t *table[T]) subscribe(filter func(T) bool) *subscription[T] {
	sub := &subscription[T]{
		filter: filter,
		known:  make(map[string]bool),
		signal: make(chan struct{}, 1),
	}
	docs := t.list(filter)
	changes := make([]live.Change[T], 0, len(docs))
	for _, doc := range docs {
		id := t.id(doc)
		sub.known[id] = true
		changes = append(changes, live.Change[T]{Kind: live.Added, ID: id, Doc: doc})
	}
	sub.push(live.Snapshot[T]{Docs: docs, Changes: changes, ReadTime: time.Now()})
	t.subs[sub] = struct{}{}
	return sub
}

type subscription[T any] struct {
	filter func(T) bool
	known  map[string]bool
	detach func()

	mu      sync.Mutex
	queue   []live.Snapshot[T]
	signal  chan struct{}
	stopped bool
	once    sync.Once
}

func (s *subscription[T]) push(snap live.Snapshot[T]) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, snap)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription[T]) Next(ctx context.Context) (live.Snapshot[T], error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			snap := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return snap, nil
		}
		stopped := s.stopped
		s.mu.Unlock()

		if stopped {
			return live.Snapshot[T]{}, context.Canceled
		}

		select {
		case <-s.signal:
		case <-ctx.Done():
			return live.Snapshot[T]{}, ctx.Err()
		}
	}
}

func (s *subscription[T]) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		s.mu.Unlock()
		if s.detach != nil {
			s.detach()
		}
		select {
		case s.signal <- struct{}{}:
		default:
		}
	})
}
