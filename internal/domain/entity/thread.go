package entity

import "fmt"

type ThreadKind string

const (
	ThreadDirect ThreadKind = "direct"
	ThreadCourt  ThreadKind = "court"
)

// ThreadRef addresses a message thread: a conversation or a court chat.
type ThreadRef struct {
	Kind ThreadKind `json:"kind"`
	ID   string     `json:"id"`
}

func (t ThreadRef) IsZero() bool {
	return t.ID == ""
}

func (t ThreadRef) Valid() bool {
	return t.ID != "" && (t.Kind == ThreadDirect || t.Kind == ThreadCourt)
}

func (t ThreadRef) String() string {
	return fmt.Sprintf("%s/%s", t.Kind, t.ID)
}
