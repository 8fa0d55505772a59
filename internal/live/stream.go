// Package live turns document-store listeners into streams with an explicit
// start/stop lifecycle.
package live

import (
	"context"
	"sync"
	"time"

	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
)

type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

type Change[T any] struct {
	Kind ChangeKind
	ID   string
	Doc  T
}

// Snapshot is the full result set of a query at one point in time plus the
// changes since the previous snapshot of the same listener.
type Snapshot[T any] struct {
	Docs     []T
	Changes  []Change[T]
	ReadTime time.Time
}

// Source is a live query. Next blocks until the next snapshot is available.
type Source[T any] interface {
	Next(ctx context.Context) (Snapshot[T], error)
	Stop()
}

// Observer is notified when streams start and finish. The metrics package
// provides the production implementation.
type Observer interface {
	StreamOpened(name string)
	StreamClosed(name string, err error)
}

var (
	observerMu sync.RWMutex
	observer   Observer
)

func SetObserver(o Observer) {
	observerMu.Lock()
	observer = o
	observerMu.Unlock()
}

func currentObserver() Observer {
	observerMu.RLock()
	defer observerMu.RUnlock()
	return observer
}

// Stream delivers values in the order they were produced until it is stopped
// or its source fails.
type Stream[T any] struct {
	name   string
	ch     chan T
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newStream[T any](ctx context.Context, name string) (*Stream[T], context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		name:   name,
		ch:     make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if o := currentObserver(); o != nil {
		o.StreamOpened(name)
	}
	return s, ctx
}

// Open starts pumping src in its own goroutine. The source is stopped when
// ctx is canceled or Stop is called.
func Open[T any](ctx context.Context, name string, src Source[T]) *Stream[Snapshot[T]] {
	s, ctx := newStream[Snapshot[T]](ctx, name)
	go func() {
		defer src.Stop()
		s.run(ctx, func(ctx context.Context) (Snapshot[T], error) {
			return src.Next(ctx)
		})
	}()
	return s
}

// Map derives a stream whose values are fn applied to every value of in.
// Values for which fn returns false are dropped. Stopping the derived stream
// stops in.
func Map[T, U any](ctx context.Context, name string, in *Stream[T], fn func(T) (U, bool)) *Stream[U] {
	s, ctx := newStream[U](ctx, name)
	go func() {
		defer in.Stop()
		s.run(ctx, func(ctx context.Context) (U, error) {
			for {
				select {
				case <-ctx.Done():
					var zero U
					return zero, ctx.Err()
				case v, ok := <-in.C():
					if !ok {
						var zero U
						if err := in.Err(); err != nil {
							return zero, err
						}
						return zero, context.Canceled
					}
					if u, keep := fn(v); keep {
						return u, nil
					}
				}
			}
		})
	}()
	return s
}

func (s *Stream[T]) run(ctx context.Context, next func(context.Context) (T, error)) {
	var runErr error
	defer func() {
		s.mu.Lock()
		s.err = runErr
		s.mu.Unlock()
		close(s.ch)
		close(s.done)
		if o := currentObserver(); o != nil {
			o.StreamClosed(s.name, runErr)
		}
	}()

	for {
		v, err := next(ctx)
		if err != nil {
			if ctx.Err() == nil && !apperrors.IsCanceled(err) {
				logger.Warn("Stream %s stopped: %v", s.name, err)
				runErr = err
			}
			return
		}
		select {
		case s.ch <- v:
		case <-ctx.Done():
			return
		}
	}
}

// C returns the delivery channel. It is closed when the stream ends.
func (s *Stream[T]) C() <-chan T {
	return s.ch
}

func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Err reports why the stream ended. It is nil while running and after a
// cancellation.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream[T]) Name() string {
	return s.name
}

// Stop cancels the stream and waits for its goroutine to exit. It is safe to
// call more than once.
func (s *Stream[T]) Stop() {
	s.cancel()
	<-s.done
}
