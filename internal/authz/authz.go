package authz

import (
	"context"

	"eventplanner-backend/internal/domain"
)

// Action names a role-gated operation on an event
type Action string

const (
	ActionViewEvent          Action = "event.view"
	ActionEditEvent          Action = "event.edit"
	ActionDeleteEvent        Action = "event.delete"
	ActionManageBoard        Action = "board.manage"
	ActionManagePolls        Action = "polls.manage"
	ActionVote               Action = "polls.vote"
	ActionChat               Action = "chat.send"
	ActionManageParticipants Action = "participants.manage"
	ActionManageInvites      Action = "invites.manage"
)

// Decision is the outcome of a policy check with a machine code for denials
type Decision struct {
	Allowed bool
	Code    string
}

// Allow is the positive decision
var Allow = Decision{Allowed: true}

// Deny produces a denial with the given machine code
func Deny(code string) Decision {
	return Decision{Allowed: false, Code: code}
}

// Decide is the single policy function consumed by every endpoint. It maps
// (role within the event, event ownership, action) to a decision. Owner-only
// actions depend on ownership alone; every other action depends on the stored
// role alone, so an owner without a participant row may delete the event but
// not view it.
func Decide(role domain.Role, isOwner bool, action Action) Decision {
	switch action {
	case ActionViewEvent, ActionVote, ActionChat:
		if role != domain.RoleNone {
			return Allow
		}
	case ActionEditEvent, ActionManageBoard, ActionManagePolls, ActionManageParticipants:
		if role == domain.RoleOrganizer {
			return Allow
		}
	case ActionDeleteEvent, ActionManageInvites:
		if isOwner {
			return Allow
		}
	}
	return Deny("forbidden")
}

// RoleSource resolves the stored role of a user within an event
type RoleSource interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
}

// Resolver answers role questions for one request. The memo is scoped to the
// resolver instance, which handlers construct per request; it is never
// shared across requests.
type Resolver struct {
	roles RoleSource
	memo  map[int64]domain.Role
}

// NewResolver creates a request-scoped role resolver
func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{
		roles: roles,
		memo:  make(map[int64]domain.Role, 1),
	}
}

// RoleFor returns the user's role within the event, RoleNone when the user
// does not participate
func (r *Resolver) RoleFor(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	if role, ok := r.memo[eventID]; ok {
		return role, nil
	}
	role, err := r.roles.GetRole(ctx, eventID, userID)
	if err != nil {
		return domain.RoleNone, err
	}
	r.memo[eventID] = role
	return role, nil
}

// IsParticipant reports whether the user participates in the event
func (r *Resolver) IsParticipant(ctx context.Context, eventID, userID int64) (bool, error) {
	role, err := r.RoleFor(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return role != domain.RoleNone, nil
}
