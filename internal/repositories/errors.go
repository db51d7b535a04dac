package repositories

import "errors"

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrCallNotFound     = errors.New("call not found")
	ErrNotParticipant   = errors.New("user is not a chat participant")
	ErrSelfChat         = errors.New("cannot create chat with self")
	ErrEmptyGroupName   = errors.New("group name is required")
	ErrAlreadyResponded = errors.New("participant already responded")
)
