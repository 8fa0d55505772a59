package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"courtside/internal/domain/entity"
	"courtside/internal/domain/repository"
	"courtside/internal/live"
	"courtside/pkg/errors"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) parent(thread entity.ThreadRef) (*firestore.DocumentRef, string, error) {
	switch thread.Kind {
	case entity.ThreadDirect:
		return r.client.Collection("conversations").Doc(thread.ID), "Conversation", nil
	case entity.ThreadCourt:
		return r.client.Collection("courts").Doc(thread.ID), "Court", nil
	}
	return nil, "", errors.BadRequest("Unknown thread kind", nil)
}

func (r *firestoreMessageRepository) messages(thread entity.ThreadRef) (*firestore.CollectionRef, error) {
	parent, _, err := r.parent(thread)
	if err != nil {
		return nil, err
	}
	return parent.Collection("messages"), nil
}

// Append writes the message and the parent preview in one batch so the
// preview never disagrees with the thread.
func (r *firestoreMessageRepository) Append(ctx context.Context, thread entity.ThreadRef, msg *entity.Message, preview entity.MessagePreview) error {
	parent, resource, err := r.parent(thread)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Normalize()

	updates := []firestore.Update{
		{Path: "lastMessage", Value: preview.Text},
		{Path: "lastMessageType", Value: preview.Type},
		{Path: "lastMessageSenderId", Value: preview.SenderID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if thread.Kind == entity.ThreadCourt {
		updates = append(updates, firestore.Update{Path: "lastMessageSenderName", Value: preview.SenderName})
	}

	batch := r.client.Batch()
	batch.Create(parent.Collection("messages").Doc(msg.ID), msg)
	batch.Update(parent, updates)
	results, err := batch.Commit(ctx)
	if err != nil {
		return errors.FromStore(resource, err)
	}
	if len(results) > 0 {
		msg.CreatedAt = results[0].UpdateTime
	}
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, thread entity.ThreadRef, messageID string) (*entity.Message, error) {
	coll, err := r.messages(thread)
	if err != nil {
		return nil, err
	}
	doc, err := coll.Doc(messageID).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("Message", err)
	}
	msg, err := decodeMessage(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return msg, nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, thread entity.ThreadRef, messageID string) error {
	coll, err := r.messages(thread)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(messageID).Delete(ctx, firestore.Exists); err != nil {
		return errors.FromStore("Message", err)
	}
	return nil
}

// ToggleReaction reads the current reactor set and applies an array union or
// removal on reactions.<emoji> inside one transaction, so concurrent toggles
// by different users never overwrite each other.
func (r *firestoreMessageRepository) ToggleReaction(ctx context.Context, thread entity.ThreadRef, messageID, emoji, userID string) (bool, error) {
	coll, err := r.messages(thread)
	if err != nil {
		return false, err
	}
	ref := coll.Doc(messageID)

	var added bool
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		msg, err := decodeMessage(doc)
		if err != nil {
			return status.Error(codes.FailedPrecondition, err.Error())
		}

		added = true
		for _, u := range msg.Reactions[emoji] {
			if u == userID {
				added = false
				break
			}
		}

		var value interface{} = firestore.ArrayUnion(userID)
		if !added {
			value = firestore.ArrayRemove(userID)
		}
		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"reactions", emoji}, Value: value},
		})
	})
	if err != nil {
		return false, errors.FromStore("Message", err)
	}
	return added, nil
}

func (r *firestoreMessageRepository) Watch(ctx context.Context, thread entity.ThreadRef) (live.Source[*entity.Message], error) {
	coll, err := r.messages(thread)
	if err != nil {
		return nil, err
	}
	return watchQuery(ctx, "messages:"+thread.String(), coll.OrderBy("createdAt", firestore.Asc), decodeMessage), nil
}
