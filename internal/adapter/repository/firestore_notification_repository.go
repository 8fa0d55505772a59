package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) collection(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("notifications")
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, err := r.collection(n.UserID).Doc(n.ID).Create(ctx, n); err != nil {
		return errors.FromStore("Notification", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	query := r.collection(userID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	list, err := collect(query.Documents(ctx), decodeNotification)
	if err != nil {
		return nil, errors.FromStore("Notification", err)
	}
	return list, nil
}

func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	_, err := r.collection(userID).Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		return errors.FromStore("Notification", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	it := r.collection(userID).Where("read", "==", false).Documents(ctx)
	defer it.Stop()

	bw := r.client.BulkWriter(ctx)
	defer bw.End()

	n := 0
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return n, errors.FromStore("Notification", err)
		}
		if _, err := bw.Update(doc.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
			return n, errors.FromStore("Notification", err)
		}
		n++
	}
	return n, nil
}

func (r *firestoreNotificationRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	n, err := deleteQuery(ctx, r.client, r.collection(userID).Where("createdAt", "<", cutoff))
	if err != nil {
		return n, errors.FromStore("Notification", err)
	}
	return n, nil
}

// DeleteAllOlderThan needs a collection group index on notifications.createdAt.
func (r *firestoreNotificationRepository) DeleteAllOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := deleteQuery(ctx, r.client, r.client.CollectionGroup("notifications").Where("createdAt", "<", cutoff))
	if err != nil {
		return n, errors.FromStore("Notification", err)
	}
	return n, nil
}

func (r *firestoreNotificationRepository) Watch(ctx context.Context, userID string) (live.Source[*entity.Notification], error) {
	return watchQuery(ctx, "notifications:"+userID, r.collection(userID).Query, decodeNotification), nil
}
