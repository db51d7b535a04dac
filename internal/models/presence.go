package models

import "time"

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
)

// Presence is a user's last-known connectivity state, derived from
// signaling connection register/unregister events.
type Presence struct {
	UserID   int64     `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}
