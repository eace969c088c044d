package domain

import (
	"time"
)

// Event represents a group workspace with a board, polls, chat and invites.
// Maps to the events table.
type Event struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     int64      `json:"owner" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Category    string     `json:"category" db:"category"`
	Location    string     `json:"location" db:"location"`
	StartAt     *time.Time `json:"start_at,omitempty" db:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty" db:"end_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// EventCreate represents data needed to create an event
type EventCreate struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Category    string     `json:"category" binding:"max=50"`
	Location    string     `json:"location" binding:"max=200"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

// Validate checks the time range invariant
func (e *EventCreate) Validate() error {
	if e.StartAt != nil && e.EndAt != nil && e.EndAt.Before(*e.StartAt) {
		return ErrEventTimeRange
	}
	return nil
}

// EventUpdate represents a partial event update
type EventUpdate struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	Category    *string    `json:"category" binding:"omitempty,max=50"`
	Location    *string    `json:"location" binding:"omitempty,max=200"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

// EventResponse represents the event returned to clients
type EventResponse struct {
	ID          int64      `json:"id"`
	Owner       int64      `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	MyRole      Role       `json:"my_role,omitempty"`
}

// ToResponse converts Event to EventResponse
func (e *Event) ToResponse() *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		Owner:       e.OwnerID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Location:    e.Location,
		StartAt:     e.StartAt,
		EndAt:       e.EndAt,
		CreatedAt:   e.CreatedAt,
	}
}

// EventSnippet is the minimal public projection exposed on invite validation
type EventSnippet struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Location string     `json:"location"`
	StartAt  *time.Time `json:"start_at"`
}

// ToSnippet converts Event to its public snippet
func (e *Event) ToSnippet() *EventSnippet {
	return &EventSnippet{
		ID:       e.ID,
		Title:    e.Title,
		Location: e.Location,
		StartAt:  e.StartAt,
	}
}

// Event-related errors
var (
	ErrEventNotFound  = NewError("EVENT_NOT_FOUND", "Event not found")
	ErrEventTimeRange = NewError("INVALID_TIME_RANGE", "end_at must not be earlier than start_at")
)
