package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"signaling-service/internal/models"
)

// ChatRepository abstracts chat and participant persistence.
type ChatRepository interface {
	FindOrCreateIndividual(ctx context.Context, userA, userB int64) (models.Chat, error)
	CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (models.Chat, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]models.ChatSummary, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// pairKey is the order-independent identity of an individual chat. The
// unique index on it collapses concurrent creates for the same pair.
func pairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// FindOrCreateIndividual returns the individual chat between the two
// users, creating it if absent. Safe under concurrent calls from both
// ends: the loser of the insert race re-reads the winner's chat.
func (r *ChatRepo) FindOrCreateIndividual(ctx context.Context, userA, userB int64) (models.Chat, error) {
	if userA == userB {
		return models.Chat{}, ErrSelfChat
	}
	key := pairKey(userA, userB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer tx.Rollback()

	var chatID int64
	err = tx.GetContext(ctx, &chatID,
		`INSERT INTO chats (chat_type, pair_key) VALUES ($1, $2)
         ON CONFLICT (pair_key) DO NOTHING
         RETURNING id`, models.ChatTypeIndividual, key)
	switch {
	case err == nil:
		for _, uid := range []int64{userA, userB} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`,
				chatID, uid, models.RoleMember); err != nil {
				return models.Chat{}, err
			}
		}
		if err := tx.Commit(); err != nil {
			return models.Chat{}, err
		}
	case errors.Is(err, sql.ErrNoRows):
		// Lost the race or the chat already existed.
		if err := r.db.GetContext(ctx, &chatID,
			`SELECT id FROM chats WHERE pair_key = $1`, key); err != nil {
			return models.Chat{}, err
		}
	default:
		return models.Chat{}, err
	}

	return r.GetChat(ctx, chatID)
}

// CreateGroup creates a group chat with the creator as admin.
func (r *ChatRepo) CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (models.Chat, error) {
	if name == "" {
		return models.Chat{}, ErrEmptyGroupName
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer tx.Rollback()

	var chatID int64
	if err := tx.GetContext(ctx, &chatID,
		`INSERT INTO chats (chat_type, name) VALUES ($1, $2) RETURNING id`,
		models.ChatTypeGroup, name); err != nil {
		return models.Chat{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`,
		chatID, creatorID, models.RoleAdmin); err != nil {
		return models.Chat{}, err
	}
	for _, uid := range memberIDs {
		if uid == creatorID {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)
             ON CONFLICT (chat_id, user_id) DO NOTHING`,
			chatID, uid, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chatID)
}

// GetChat fetches a chat with its participants.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, chat_type, name, created_at FROM chats WHERE id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}

	if err := r.db.SelectContext(ctx, &chat.Participants,
		`SELECT chat_id, user_id, role, joined_at FROM chat_participants
         WHERE chat_id = $1 ORDER BY joined_at, user_id`, chatID); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// ListChatsForUser returns the user's chats ordered by latest activity,
// with the most recent message attached.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.chat_type, c.name, c.created_at,
            m.id AS msg_id, m.sender_id, m.content, m.content_type, m.file_url, m.created_at AS msg_created_at
        FROM chats c
        JOIN chat_participants cp ON cp.chat_id = c.id AND cp.user_id = $1
        LEFT JOIN LATERAL (
            SELECT id, sender_id, content, content_type, file_url, created_at
            FROM messages WHERE chat_id = c.id ORDER BY id DESC LIMIT 1
        ) m ON TRUE
        ORDER BY COALESCE(m.created_at, c.created_at) DESC`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.ChatSummary
	var chatIDs []int64
	for rows.Next() {
		var s models.ChatSummary
		var msgID, senderID sql.NullInt64
		var content, contentType, fileURL sql.NullString
		var msgCreatedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Type, &s.Name, &s.CreatedAt,
			&msgID, &senderID, &content, &contentType, &fileURL, &msgCreatedAt); err != nil {
			return nil, err
		}
		if msgID.Valid {
			s.LastMessage = &models.Message{
				ID:          msgID.Int64,
				ChatID:      s.ID,
				SenderID:    senderID.Int64,
				Content:     content.String,
				ContentType: contentType.String,
				FileURL:     fileURL.String,
				CreatedAt:   msgCreatedAt.Time,
			}
		}
		summaries = append(summaries, s)
		chatIDs = append(chatIDs, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return summaries, nil
	}

	var parts []models.Participant
	if err := r.db.SelectContext(ctx, &parts,
		`SELECT chat_id, user_id, role, joined_at FROM chat_participants
         WHERE chat_id = ANY($1) ORDER BY joined_at, user_id`, pq.Array(chatIDs)); err != nil {
		return nil, err
	}
	byChat := make(map[int64][]models.Participant, len(summaries))
	for _, p := range parts {
		byChat[p.ChatID] = append(byChat[p.ChatID], p)
	}
	for i := range summaries {
		summaries[i].Participants = byChat[summaries[i].ID]
	}
	return summaries, nil
}

// IsParticipant checks whether the user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID)
	return exists, err
}

// ParticipantIDs returns the user ids of all chat participants. Used by
// the relay for broadcast fan-out.
func (r *ChatRepo) ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY user_id`, chatID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, chatID); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrChatNotFound
		}
	}
	return ids, nil
}
