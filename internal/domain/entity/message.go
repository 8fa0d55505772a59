package entity

import "time"

const (
	MessageText = "text"
	MessageGif  = "gif"
)

type Message struct {
	ID        string              `json:"id" firestore:"-"`
	UserID    string              `json:"user_id" firestore:"userId"`
	UserName  string              `json:"user_name,omitempty" firestore:"userName,omitempty"`
	Text      string              `json:"text,omitempty" firestore:"text"`
	GifURL    string              `json:"gif_url,omitempty" firestore:"gifUrl,omitempty"`
	Type      string              `json:"type" firestore:"type"`
	CreatedAt time.Time           `json:"created_at" firestore:"createdAt,serverTimestamp"`
	Reactions map[string][]string `json:"reactions" firestore:"reactions"`
}

func (m *Message) Normalize() {
	if m.Type == "" {
		if m.GifURL != "" {
			m.Type = MessageGif
		} else {
			m.Type = MessageText
		}
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
}

// PreviewText is the text shown for this message in lists and banners.
func (m *Message) PreviewText() string {
	if m.Type == MessageGif {
		return "sent a GIF"
	}
	return m.Text
}

func (m *Message) Clone() *Message {
	cp := *m
	cp.Reactions = make(map[string][]string, len(m.Reactions))
	for emoji, users := range m.Reactions {
		cp.Reactions[emoji] = append([]string(nil), users...)
	}
	return &cp
}

// MessagePreview is written to the parent thread alongside every new message.
type MessagePreview struct {
	Text       string
	Type       string
	SenderID   string
	SenderName string
}
