// Package calls holds the call lifecycle rules: per-participant response
// transitions and call finalization.
package calls

import (
	"math"
	"time"

	"signaling-service/internal/models"
)

// ValidResponse reports whether status is a legal transition out of
// pending. pending → accepted | declined | missed, all terminal.
func ValidResponse(status string) bool {
	switch status {
	case models.CallStatusAccepted, models.CallStatusDeclined, models.CallStatusMissed:
		return true
	}
	return false
}

// AllResponded reports whether no participant remains pending, which is
// the call-level completion condition.
func AllResponded(parts []models.CallParticipant) bool {
	for _, p := range parts {
		if p.Status == models.CallStatusPending {
			return false
		}
	}
	return len(parts) > 0
}

// Duration computes the call duration in whole seconds over the
// participants that actually joined: from the earliest join to the
// latest leave, where a joined participant who never left counts as
// leaving at finalization time. Returns false when nobody joined.
func Duration(parts []models.CallParticipant, now time.Time) (int64, bool) {
	var firstJoined, lastLeft time.Time
	joined := false

	for _, p := range parts {
		if p.JoinedAt == nil {
			continue
		}
		left := now
		if p.LeftAt != nil {
			left = *p.LeftAt
		}
		if !joined {
			firstJoined, lastLeft = *p.JoinedAt, left
			joined = true
			continue
		}
		if p.JoinedAt.Before(firstJoined) {
			firstJoined = *p.JoinedAt
		}
		if left.After(lastLeft) {
			lastLeft = left
		}
	}

	if !joined {
		return 0, false
	}
	return int64(math.Round(lastLeft.Sub(firstJoined).Seconds())), true
}
