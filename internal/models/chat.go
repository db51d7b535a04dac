package models

import "time"

// Chat types.
const (
	ChatTypeIndividual = "individual"
	ChatTypeGroup      = "group"
)

// Participant roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Chat is an individual or group conversation.
type Chat struct {
	ID        int64     `db:"id" json:"id"`
	Type      string    `db:"chat_type" json:"type"`
	Name      string    `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Participants []Participant `json:"participants,omitempty"`
}

// Participant is a user's membership in one chat.
type Participant struct {
	ChatID   int64     `db:"chat_id" json:"-"`
	UserID   int64     `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ChatSummary is the per-user chat list view. LastMessage is derived
// from the message log on read, not stored.
type ChatSummary struct {
	Chat
	LastMessage *Message `json:"last_message"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID int64) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
