// Package presence tracks each user's last-known connectivity state,
// derived from signaling connection register/unregister events.
package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signaling-service/internal/models"
	"signaling-service/internal/observability"
)

const (
	keyPrefix    = "presence:"
	writeTimeout = 3 * time.Second
)

// Publisher is the event-bus surface the tracker needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event observability.EventEnvelope, headers map[string]string) error
}

// Tracker keeps per-user presence in Redis. All writes are best effort:
// failures are logged and swallowed, never surfaced to the connection.
type Tracker struct {
	rdb       *redis.Client
	publisher Publisher
	log       *zap.Logger
}

// NewTracker constructs a Tracker.
func NewTracker(rdb *redis.Client, publisher Publisher, log *zap.Logger) *Tracker {
	return &Tracker{rdb: rdb, publisher: publisher, log: log}
}

// SetOnline flips the user online and stamps last_seen.
func (t *Tracker) SetOnline(userID int64) {
	t.set(userID, models.StatusOnline)
}

// SetOffline flips the user offline and stamps last_seen.
func (t *Tracker) SetOffline(userID int64) {
	t.set(userID, models.StatusOffline)
}

func (t *Tracker) set(userID int64, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := t.rdb.HSet(ctx, key(userID),
		"status", status,
		"last_seen", now.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		t.log.Warn("presence update failed",
			zap.Int64("user_id", userID),
			zap.String("status", status),
			zap.Error(err))
		return
	}

	if t.publisher != nil {
		_ = t.publisher.Publish(ctx, "presence."+status, observability.EventEnvelope{
			EventType: "presence",
			EventName: status,
			Payload: models.Presence{
				UserID:   userID,
				Status:   status,
				LastSeen: now,
			},
		}, nil)
	}
}

// Get returns the user's presence. Users never seen report offline.
func (t *Tracker) Get(ctx context.Context, userID int64) (models.Presence, error) {
	fields, err := t.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return models.Presence{}, err
	}

	p := models.Presence{UserID: userID, Status: models.StatusOffline}
	if status, ok := fields["status"]; ok {
		p.Status = status
	}
	if raw, ok := fields["last_seen"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			p.LastSeen = ts
		}
	}
	return p, nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}
