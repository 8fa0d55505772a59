package entity

import "time"

// TypingFlag lives at conversations/{id}/typing/{userId} and is overwritten in place.
type TypingFlag struct {
	UserID      string    `json:"user_id" firestore:"-"`
	IsTyping    bool      `json:"is_typing" firestore:"isTyping"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
}
