package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"courtside/internal/domain/entity"
	"courtside/internal/live"
	"courtside/pkg/logger"
)

// snapshotSource adapts a Firestore query listener to live.Source. Documents
// are decoded at this boundary; ones that fail to decode are skipped.
type snapshotSource[T any] struct {
	name   string
	it     *firestore.QuerySnapshotIterator
	cancel context.CancelFunc
	decode func(*firestore.DocumentSnapshot) (T, error)
}

func watchQuery[T any](ctx context.Context, name string, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) live.Source[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &snapshotSource[T]{
		name:   name,
		it:     q.Snapshots(ctx),
		cancel: cancel,
		decode: decode,
	}
}

func (s *snapshotSource[T]) Next(ctx context.Context) (live.Snapshot[T], error) {
	// The iterator only watches the context it was created with.
	release := context.AfterFunc(ctx, s.cancel)
	defer release()

	qs, err := s.it.Next()
	if err == iterator.Done {
		return live.Snapshot[T]{}, context.Canceled
	}
	if err != nil {
		return live.Snapshot[T]{}, err
	}

	docs, err := qs.Documents.GetAll()
	if err != nil {
		return live.Snapshot[T]{}, err
	}

	snap := live.Snapshot[T]{
		Docs:     make([]T, 0, len(docs)),
		Changes:  make([]live.Change[T], 0, len(qs.Changes)),
		ReadTime: qs.ReadTime,
	}
	for _, doc := range docs {
		v, err := s.decode(doc)
		if err != nil {
			logger.Warn("Skipping malformed %s document %s: %v", s.name, doc.Ref.ID, err)
			continue
		}
		snap.Docs = append(snap.Docs, v)
	}
	for _, ch := range qs.Changes {
		v, err := s.decode(ch.Doc)
		if err != nil {
			continue
		}
		snap.Changes = append(snap.Changes, live.Change[T]{
			Kind: changeKind(ch.Kind),
			ID:   ch.Doc.Ref.ID,
			Doc:  v,
		})
	}
	return snap, nil
}

func (s *snapshotSource[T]) Stop() {
	s.cancel()
	s.it.Stop()
}

func changeKind(k firestore.DocumentChangeKind) live.ChangeKind {
	switch k {
	case firestore.DocumentRemoved:
		return live.Removed
	case firestore.DocumentModified:
		return live.Modified
	}
	return live.Added
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, err
	}
	conv.ID = doc.Ref.ID
	conv.Normalize()
	return &conv, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, err
	}
	msg.ID = doc.Ref.ID
	msg.Normalize()
	return &msg, nil
}

func decodeTypingFlag(doc *firestore.DocumentSnapshot) (*entity.TypingFlag, error) {
	var flag entity.TypingFlag
	if err := doc.DataTo(&flag); err != nil {
		return nil, err
	}
	flag.UserID = doc.Ref.ID
	return &flag, nil
}

func decodeNotification(doc *firestore.DocumentSnapshot) (*entity.Notification, error) {
	var n entity.Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, err
	}
	n.ID = doc.Ref.ID
	if owner := doc.Ref.Parent.Parent; owner != nil {
		n.UserID = owner.ID
	}
	return &n, nil
}

func decodeCourt(doc *firestore.DocumentSnapshot) (*entity.Court, error) {
	var court entity.Court
	if err := doc.DataTo(&court); err != nil {
		return nil, err
	}
	court.ID = doc.Ref.ID
	return &court, nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

// collect drains a query iterator, decoding every document.
func collect[T any](it *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	defer it.Stop()
	var out []T
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		v, err := decode(doc)
		if err != nil {
			logger.Warn("Skipping malformed document %s: %v", doc.Ref.Path, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// deleteQuery removes every document the query matches and reports how many.
func deleteQuery(ctx context.Context, client *firestore.Client, q firestore.Query) (int, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	bw := client.BulkWriter(ctx)
	n := 0
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return n, err
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			bw.End()
			return n, err
		}
		n++
	}
	bw.End()
	return n, nil
}
