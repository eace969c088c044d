package domain

import (
	"time"
)

// MaxMessageLength bounds chat message text after trimming
const MaxMessageLength = 4000

// Message is one chat message inside an event.
// Ordering within an event is (created_at, id) ascending.
type Message struct {
	ID        int64      `json:"id" db:"id"`
	EventID   int64      `json:"event" db:"event_id"`
	AuthorID  int64      `json:"author" db:"author_id"`
	Text      string     `json:"text" db:"text"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty" db:"edited_at"`
}

// MessageCreate represents data needed to post a message
type MessageCreate struct {
	Text string `json:"text" binding:"required"`
}

// MessageResponse is the viewer-agnostic message DTO; it carries no
// viewer-specific fields so the same payload can be broadcast to everyone.
type MessageResponse struct {
	ID           int64      `json:"id"`
	Event        int64      `json:"event"`
	Author       int64      `json:"author"`
	AuthorName   string     `json:"author_name"`
	AuthorAvatar *string    `json:"author_avatar,omitempty"`
	Text         string     `json:"text"`
	CreatedAt    time.Time  `json:"created_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
}

// Message-related errors
var (
	ErrMessageNotFound = NewError("MESSAGE_NOT_FOUND", "Message not found")
	ErrMessageEmpty    = NewError("MESSAGE_EMPTY", "Message text must not be empty")
	ErrMessageTooLong  = NewError("MESSAGE_TOO_LONG", "Message text is too long")
	ErrMessageRate     = NewError("RATE_LIMITED", "Messages are sent too frequently")
)
