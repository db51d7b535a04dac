package models

import "time"

// Message content types.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
	ContentTypeVideo = "video"
	ContentTypeFile  = "file"
)

// ValidContentType reports whether ct is a known message content type.
func ValidContentType(ct string) bool {
	switch ct {
	case ContentTypeText, ContentTypeImage, ContentTypeVideo, ContentTypeFile:
		return true
	}
	return false
}

// Message is a single entry in a chat's append-only message log.
// Immutable after creation except for ReadBy and Reactions growth.
type Message struct {
	ID          int64     `db:"id" json:"id"`
	ChatID      int64     `db:"chat_id" json:"chat_id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	Content     string    `db:"content" json:"content"`
	ContentType string    `db:"content_type" json:"content_type"`
	FileURL     string    `db:"file_url" json:"file_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	ReadBy    []ReadReceipt `json:"read_by,omitempty"`
	Reactions []Reaction    `json:"reactions,omitempty"`
}

// ReadReceipt records that a user has read a message. At most one per
// user per message.
type ReadReceipt struct {
	MessageID int64     `db:"message_id" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// Reaction is a user's reaction to a message. At most one per user per
// message; a new reaction replaces the previous one.
type Reaction struct {
	MessageID int64  `db:"message_id" json:"-"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Type      string `db:"reaction" json:"type"`
}

// ValidReaction reports whether r is a supported reaction type.
func ValidReaction(r string) bool {
	switch r {
	case "like", "love", "haha", "wow", "sad", "angry":
		return true
	}
	return false
}
