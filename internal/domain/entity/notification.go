package entity

import "time"

const NotificationReaction = "reaction"

type Notification struct {
	ID         string     `json:"id" firestore:"-"`
	UserID     string     `json:"user_id" firestore:"-"`
	Type       string     `json:"type" firestore:"type"`
	ActorID    string     `json:"actor_id" firestore:"actorId"`
	ActorName  string     `json:"actor_name" firestore:"actorName"`
	ThreadKind ThreadKind `json:"thread_kind" firestore:"threadKind"`
	ThreadID   string     `json:"thread_id" firestore:"threadId"`
	MessageID  string     `json:"message_id,omitempty" firestore:"messageId,omitempty"`
	Emoji      string     `json:"emoji,omitempty" firestore:"emoji,omitempty"`
	Text       string     `json:"text,omitempty" firestore:"text,omitempty"`
	Read       bool       `json:"read" firestore:"read"`
	CreatedAt  time.Time  `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

func (n *Notification) Thread() ThreadRef {
	return ThreadRef{Kind: n.ThreadKind, ID: n.ThreadID}
}
