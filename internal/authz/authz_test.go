package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		isOwner bool
		action  Action
		allowed bool
	}{
		{"member views", domain.RoleMember, false, ActionViewEvent, true},
		{"member votes", domain.RoleMember, false, ActionVote, true},
		{"member chats", domain.RoleMember, false, ActionChat, true},
		{"member cannot manage board", domain.RoleMember, false, ActionManageBoard, false},
		{"member cannot manage polls", domain.RoleMember, false, ActionManagePolls, false},
		{"organizer manages board", domain.RoleOrganizer, false, ActionManageBoard, true},
		{"organizer manages participants", domain.RoleOrganizer, false, ActionManageParticipants, true},
		{"organizer cannot create invites", domain.RoleOrganizer, false, ActionManageInvites, false},
		{"owner creates invites", domain.RoleOrganizer, true, ActionManageInvites, true},
		{"owner deletes event", domain.RoleOrganizer, true, ActionDeleteEvent, true},
		{"outsider sees nothing", domain.RoleNone, false, ActionViewEvent, false},
		{"outsider owner still deletes", domain.RoleNone, true, ActionDeleteEvent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(tt.role, tt.isOwner, tt.action)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, "forbidden", decision.Code)
			}
		})
	}
}

type countingRoleSource struct {
	role  domain.Role
	calls int
}

func (s *countingRoleSource) GetRole(_ context.Context, _, _ int64) (domain.Role, error) {
	s.calls++
	return s.role, nil
}

func TestResolverMemoizesWithinRequest(t *testing.T) {
	source := &countingRoleSource{role: domain.RoleMember}
	resolver := NewResolver(source)

	ctx := context.Background()
	role, err := resolver.RoleFor(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, role)

	isParticipant, err := resolver.IsParticipant(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, isParticipant)

	assert.Equal(t, 1, source.calls, "second lookup must hit the memo")

	// A fresh resolver (next request) queries again.
	other := NewResolver(source)
	_, err = other.RoleFor(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}
