package entity

import (
	"sort"
	"strings"
	"time"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// ParticipantInfo is a denormalized copy of a participant's display fields.
type ParticipantInfo struct {
	DisplayName  string `json:"display_name" firestore:"displayName"`
	ProfileImage string `json:"profile_image,omitempty" firestore:"profileImage,omitempty"`
}

type Conversation struct {
	ID                  string                     `json:"id" firestore:"-"`
	Type                string                     `json:"type" firestore:"type"`
	Name                string                     `json:"name,omitempty" firestore:"name,omitempty"`
	Participants        []string                   `json:"participants" firestore:"participants"`
	ParticipantInfo     map[string]ParticipantInfo `json:"participant_info" firestore:"participantInfo"`
	LastMessage         string                     `json:"last_message,omitempty" firestore:"lastMessage"`
	LastMessageType     string                     `json:"last_message_type,omitempty" firestore:"lastMessageType"`
	LastMessageSenderID string                     `json:"last_message_sender_id,omitempty" firestore:"lastMessageSenderId"`
	UpdatedAt           time.Time                  `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
	ReadBy              map[string]time.Time       `json:"read_by" firestore:"readBy"`
	CreatedAt           time.Time                  `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// Normalize fills the defaults a loosely written document may lack.
func (c *Conversation) Normalize() {
	if c.Type == "" {
		if len(c.Participants) > 2 {
			c.Type = ConversationGroup
		} else {
			c.Type = ConversationDirect
		}
	}
	if c.ParticipantInfo == nil {
		c.ParticipantInfo = make(map[string]ParticipantInfo)
	}
	if c.ReadBy == nil {
		c.ReadBy = make(map[string]time.Time)
	}
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns the participants other than userID, in stored order.
func (c *Conversation) Others(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

func (c *Conversation) Thread() ThreadRef {
	return ThreadRef{Kind: ThreadDirect, ID: c.ID}
}

func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.ParticipantInfo = make(map[string]ParticipantInfo, len(c.ParticipantInfo))
	for k, v := range c.ParticipantInfo {
		cp.ParticipantInfo[k] = v
	}
	cp.ReadBy = make(map[string]time.Time, len(c.ReadBy))
	for k, v := range c.ReadBy {
		cp.ReadBy[k] = v
	}
	return &cp
}

// SameMembers reports whether the conversation is between exactly the given
// users, in any order.
func (c *Conversation) SameMembers(userIDs ...string) bool {
	if len(c.Participants) != len(userIDs) {
		return false
	}
	for _, id := range userIDs {
		if !c.HasParticipant(id) {
			return false
		}
	}
	return true
}

var directIDEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// DirectConversationID is the deterministic id of the direct conversation
// between two users, independent of argument order. Underscores inside user
// ids are escaped so the separator stays unambiguous.
func DirectConversationID(userA, userB string) string {
	pair := []string{directIDEscaper.Replace(userA), directIDEscaper.Replace(userB)}
	sort.Strings(pair)
	return "dm_" + strings.Join(pair, "_")
}
