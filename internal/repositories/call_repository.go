package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"signaling-service/internal/calls"
	"signaling-service/internal/models"
)

// CallRepository persists a chat's call history and participant
// response state.
type CallRepository interface {
	Create(ctx context.Context, chatID, initiatorID int64, callType string) (models.Call, error)
	Get(ctx context.Context, chatID, callID int64) (models.Call, error)
	Respond(ctx context.Context, chatID, callID, userID int64, status string, now time.Time) (models.Call, bool, error)
	Leave(ctx context.Context, chatID, callID, userID int64, now time.Time) error
}

// CallRepo is a sqlx implementation of CallRepository.
type CallRepo struct {
	db *sqlx.DB
}

// NewCallRepo constructs a CallRepo.
func NewCallRepo(db *sqlx.DB) *CallRepo {
	return &CallRepo{db: db}
}

// Create appends a call to the chat's history, seeding its participants
// from the chat's current participant list. The initiator starts out
// accepted, everyone else pending. A call seeded with nobody pending
// (the chat holds only the initiator) is finalized on the spot, since
// no response will ever arrive to do it.
func (r *CallRepo) Create(ctx context.Context, chatID, initiatorID int64, callType string) (models.Call, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Call{}, err
	}
	defer tx.Rollback()

	var callID int64
	if err := tx.GetContext(ctx, &callID,
		`INSERT INTO calls (chat_id, call_type, initiator_id) VALUES ($1, $2, $3) RETURNING id`,
		chatID, callType, initiatorID); err != nil {
		return models.Call{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO call_participants (call_id, user_id, status)
         SELECT $1, cp.user_id,
                CASE WHEN cp.user_id = $2 THEN 'accepted' ELSE 'pending' END
         FROM chat_participants cp WHERE cp.chat_id = $3`,
		callID, initiatorID, chatID); err != nil {
		return models.Call{}, err
	}

	var parts []models.CallParticipant
	if err := tx.SelectContext(ctx, &parts,
		`SELECT call_id, user_id, status, joined_at, left_at
         FROM call_participants WHERE call_id = $1 ORDER BY user_id`, callID); err != nil {
		return models.Call{}, err
	}
	if calls.AllResponded(parts) {
		now := time.Now()
		var duration *int64
		if secs, ok := calls.Duration(parts, now); ok {
			duration = &secs
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE calls SET ended_at = $1, duration_secs = $2 WHERE id = $3`,
			now, duration, callID); err != nil {
			return models.Call{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Call{}, err
	}
	return r.Get(ctx, chatID, callID)
}

// Get fetches a call with its participants.
func (r *CallRepo) Get(ctx context.Context, chatID, callID int64) (models.Call, error) {
	var call models.Call
	err := r.db.GetContext(ctx, &call,
		`SELECT id, chat_id, call_type, initiator_id, started_at, ended_at, duration_secs
         FROM calls WHERE id = $1 AND chat_id = $2`, callID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, ErrCallNotFound
	}
	if err != nil {
		return models.Call{}, err
	}

	if err := r.db.SelectContext(ctx, &call.Participants,
		`SELECT call_id, user_id, status, joined_at, left_at
         FROM call_participants WHERE call_id = $1 ORDER BY user_id`, callID); err != nil {
		return models.Call{}, err
	}
	return call, nil
}

// Respond applies the caller's own response to a pending call entry and
// finalizes the call once nobody remains pending. Finalization is
// guarded by ended_at, so a repeated run never recomputes duration.
// The bool result reports whether this response ended the call.
func (r *CallRepo) Respond(ctx context.Context, chatID, callID, userID int64, status string, now time.Time) (models.Call, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Call{}, false, err
	}
	defer tx.Rollback()

	var callRow struct {
		ID      int64        `db:"id"`
		EndedAt sql.NullTime `db:"ended_at"`
	}
	err = tx.GetContext(ctx, &callRow,
		`SELECT id, ended_at FROM calls WHERE id = $1 AND chat_id = $2 FOR UPDATE`,
		callID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, false, ErrCallNotFound
	}
	if err != nil {
		return models.Call{}, false, err
	}

	var current string
	err = tx.GetContext(ctx, &current,
		`SELECT status FROM call_participants WHERE call_id = $1 AND user_id = $2`,
		callID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, false, ErrNotParticipant
	}
	if err != nil {
		return models.Call{}, false, err
	}
	if current != models.CallStatusPending {
		return models.Call{}, false, ErrAlreadyResponded
	}

	if status == models.CallStatusAccepted {
		_, err = tx.ExecContext(ctx,
			`UPDATE call_participants SET status = $1, joined_at = $2
             WHERE call_id = $3 AND user_id = $4`, status, now, callID, userID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE call_participants SET status = $1, left_at = $2
             WHERE call_id = $3 AND user_id = $4`, status, now, callID, userID)
	}
	if err != nil {
		return models.Call{}, false, err
	}

	var parts []models.CallParticipant
	if err := tx.SelectContext(ctx, &parts,
		`SELECT call_id, user_id, status, joined_at, left_at
         FROM call_participants WHERE call_id = $1 ORDER BY user_id`, callID); err != nil {
		return models.Call{}, false, err
	}

	finalized := false
	if calls.AllResponded(parts) && !callRow.EndedAt.Valid {
		var duration *int64
		if secs, ok := calls.Duration(parts, now); ok {
			duration = &secs
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE calls SET ended_at = $1, duration_secs = $2
             WHERE id = $3 AND ended_at IS NULL`, now, duration, callID); err != nil {
			return models.Call{}, false, err
		}
		finalized = true
	}

	if err := tx.Commit(); err != nil {
		return models.Call{}, false, err
	}

	call, err := r.Get(ctx, chatID, callID)
	return call, finalized, err
}

// Leave records that a joined participant hung up. Only affects accepted
// participants that have not left yet.
func (r *CallRepo) Leave(ctx context.Context, chatID, callID, userID int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE call_participants cp SET left_at = $1
         FROM calls c
         WHERE c.id = cp.call_id AND c.id = $2 AND c.chat_id = $3
           AND cp.user_id = $4 AND cp.status = 'accepted' AND cp.left_at IS NULL`,
		now, callID, chatID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCallNotFound
	}
	return nil
}
