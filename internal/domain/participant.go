package domain

import (
	"time"
)

// Role represents a participant role inside an event
type Role string

const (
	// RoleOrganizer can manage the board, polls and participants
	RoleOrganizer Role = "organizer"
	// RoleMember can view and contribute
	RoleMember Role = "member"
	// RoleNone marks a user that is not attached to the event
	RoleNone Role = ""
)

// ValidRole reports whether r is a persistable role
func ValidRole(r Role) bool {
	return r == RoleOrganizer || r == RoleMember
}

// Participant attaches a user to an event with a role.
// Maps to the participants table; (user, event) is unique.
type Participant struct {
	ID       int64     `json:"id" db:"id"`
	EventID  int64     `json:"event" db:"event_id"`
	UserID   int64     `json:"user" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// ParticipantResponse represents a participant with joined user fields
type ParticipantResponse struct {
	ID         int64     `json:"id"`
	Event      int64     `json:"event"`
	User       int64     `json:"user"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	AvatarPath *string   `json:"avatar_path,omitempty"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}

// ParticipantRoleUpdate represents a role change request
type ParticipantRoleUpdate struct {
	Role Role `json:"role" binding:"required,oneof=organizer member"`
}

// Participant-related errors
var (
	ErrParticipantNotFound = NewError("PARTICIPANT_NOT_FOUND", "Participant not found")
	ErrAlreadyParticipant  = NewError("ALREADY_PARTICIPANT", "User already participates in this event")
	// ErrLastOrganizer guards the invariant that every event keeps at
	// least one organizer.
	ErrLastOrganizer     = NewError("last_organizer", "Cannot remove or demote the last organizer")
	ErrSelfLastOrganizer = NewError("self_last_organizer", "Cannot change your role because you are the only organizer")
)
