package models

import "time"

// Call types.
const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

// Call participant statuses.
const (
	CallStatusPending  = "pending"
	CallStatusAccepted = "accepted"
	CallStatusDeclined = "declined"
	CallStatusMissed   = "missed"
)

// Call is one entry in a chat's call history. Terminal once EndedAt is set.
type Call struct {
	ID          int64      `db:"id" json:"id"`
	ChatID      int64      `db:"chat_id" json:"chat_id"`
	Type        string     `db:"call_type" json:"type"`
	InitiatorID int64      `db:"initiator_id" json:"initiator_id"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	EndedAt     *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Duration    *int64     `db:"duration_secs" json:"duration,omitempty"`

	Participants []CallParticipant `json:"participants,omitempty"`
}

// Ended reports whether the call has been finalized.
func (c Call) Ended() bool {
	return c.EndedAt != nil
}

// CallParticipant tracks one user's response to a call. Seeded from the
// chat's participant list when the call is created; the initiator starts
// out accepted, everyone else pending.
type CallParticipant struct {
	CallID   int64      `db:"call_id" json:"-"`
	UserID   int64      `db:"user_id" json:"user_id"`
	Status   string     `db:"status" json:"status"`
	JoinedAt *time.Time `db:"joined_at" json:"joined_at,omitempty"`
	LeftAt   *time.Time `db:"left_at" json:"left_at,omitempty"`
}
