package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"signaling-service/internal/models"
)

// MessageRepository defines interactions with a chat's message log.
type MessageRepository interface {
	Append(ctx context.Context, chatID, senderID int64, content, contentType, fileURL string) (models.Message, error)
	ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID, readerID int64, messageIDs []int64) (int64, error)
	SetReaction(ctx context.Context, chatID, messageID, userID int64, reaction string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message at the end of the chat's log. A single INSERT
// serializes concurrent senders on the id sequence, so append order is
// server-arrival order and no update is ever lost.
func (r *MessageRepo) Append(ctx context.Context, chatID, senderID int64, content, contentType, fileURL string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (chat_id, sender_id, content, content_type, file_url)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, chat_id, sender_id, content, content_type, file_url, created_at`,
		chatID, senderID, content, contentType, fileURL)
	return msg, err
}

// ListPage returns one page of messages ordered oldest to newest. Pages
// are windows over the append-only log ordered by id, so concurrent
// appends never shift pages that were already returned.
func (r *MessageRepo) ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, chat_id, sender_id, content, content_type, file_url, created_at
         FROM messages WHERE chat_id = $1
         ORDER BY id ASC LIMIT $2 OFFSET $3`,
		chatID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	var reads []models.ReadReceipt
	if err := r.db.SelectContext(ctx, &reads,
		`SELECT message_id, user_id, read_at FROM message_reads
         WHERE message_id = ANY($1) ORDER BY read_at`, pq.Array(ids)); err != nil {
		return nil, err
	}
	var reactions []models.Reaction
	if err := r.db.SelectContext(ctx, &reactions,
		`SELECT message_id, user_id, reaction FROM message_reactions
         WHERE message_id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Message, len(msgs))
	for i := range msgs {
		byID[msgs[i].ID] = &msgs[i]
	}
	for _, rr := range reads {
		if m := byID[rr.MessageID]; m != nil {
			m.ReadBy = append(m.ReadBy, rr)
		}
	}
	for _, rc := range reactions {
		if m := byID[rc.MessageID]; m != nil {
			m.Reactions = append(m.Reactions, rc)
		}
	}
	return msgs, nil
}

// MarkRead records read receipts for the given messages. Ids that do not
// belong to the chat are ignored; re-reading is a no-op, so at most one
// receipt per user per message ever exists. Returns the number of new
// receipts.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID, readerID int64, messageIDs []int64) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT m.id, $2 FROM messages m
         WHERE m.chat_id = $1 AND m.id = ANY($3)
         ON CONFLICT (message_id, user_id) DO NOTHING`,
		chatID, readerID, pq.Array(messageIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetReaction upserts the user's reaction on a message in the chat.
func (r *MessageRepo) SetReaction(ctx context.Context, chatID, messageID, userID int64, reaction string) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reactions (message_id, user_id, reaction)
         SELECT m.id, $3, $4 FROM messages m WHERE m.id = $2 AND m.chat_id = $1
         ON CONFLICT (message_id, user_id) DO UPDATE SET reaction = EXCLUDED.reaction`,
		chatID, messageID, userID, reaction)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
