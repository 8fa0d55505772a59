package entity

import (
	"time"
)

type User struct {
	ID              string    `json:"id" firestore:"-"`
	Email           string    `json:"email" firestore:"email"`
	DisplayName     string    `json:"display_name" firestore:"displayName"`
	ProfileImage    string    `json:"profile_image,omitempty" firestore:"profileImage,omitempty"`
	Friends         []string  `json:"friends" firestore:"friends"`
	IsAdmin         bool      `json:"is_admin" firestore:"isAdmin"`
	ProfileComplete bool      `json:"profile_complete" firestore:"profileComplete"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Name returns the display name, falling back to the id.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

func (u *User) Info() ParticipantInfo {
	return ParticipantInfo{DisplayName: u.Name(), ProfileImage: u.ProfileImage}
}
