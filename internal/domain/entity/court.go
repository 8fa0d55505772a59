package entity

import "time"

type Court struct {
	ID                    string    `json:"id" firestore:"-"`
	Name                  string    `json:"name" firestore:"name"`
	Address               string    `json:"address,omitempty" firestore:"address,omitempty"`
	Members               []string  `json:"members" firestore:"members"`
	LastMessage           string    `json:"last_message,omitempty" firestore:"lastMessage"`
	LastMessageType       string    `json:"last_message_type,omitempty" firestore:"lastMessageType"`
	LastMessageSenderID   string    `json:"last_message_sender_id,omitempty" firestore:"lastMessageSenderId"`
	LastMessageSenderName string    `json:"last_message_sender_name,omitempty" firestore:"lastMessageSenderName"`
	UpdatedAt             time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (c *Court) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func (c *Court) Thread() ThreadRef {
	return ThreadRef{Kind: ThreadCourt, ID: c.ID}
}

func (c *Court) Clone() *Court {
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	return &cp
}
