package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInviteStatusDerivation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name   string
		invite Invite
		want   InviteStatus
	}{
		{"active unlimited", Invite{ExpiresAt: future}, InviteStatusOK},
		{"active limited", Invite{ExpiresAt: future, MaxUses: 5, UsesCount: 4}, InviteStatusOK},
		{"exhausted", Invite{ExpiresAt: future, MaxUses: 5, UsesCount: 5}, InviteStatusExhausted},
		{"over-consumed", Invite{ExpiresAt: future, MaxUses: 5, UsesCount: 7}, InviteStatusExhausted},
		{"expired", Invite{ExpiresAt: past}, InviteStatusExpired},
		{"expired exactly now", Invite{ExpiresAt: now}, InviteStatusExpired},
		{"revoked wins over expired", Invite{ExpiresAt: past, IsRevoked: true}, InviteStatusRevoked},
		{"revoked wins over exhausted", Invite{ExpiresAt: future, MaxUses: 1, UsesCount: 1, IsRevoked: true}, InviteStatusRevoked},
		{"expired wins over exhausted", Invite{ExpiresAt: past, MaxUses: 1, UsesCount: 1}, InviteStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invite.Status(now))
		})
	}
}

func TestInviteUsesLeft(t *testing.T) {
	unlimited := Invite{MaxUses: 0, UsesCount: 3}
	assert.Nil(t, unlimited.UsesLeft())

	limited := Invite{MaxUses: 5, UsesCount: 3}
	left := limited.UsesLeft()
	assert.NotNil(t, left)
	assert.Equal(t, 2, *left)

	drained := Invite{MaxUses: 2, UsesCount: 4}
	left = drained.UsesLeft()
	assert.NotNil(t, left)
	assert.Equal(t, 0, *left)
}

func TestNewInviteTokenUniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := NewInviteToken()
		assert.False(t, seen[token], "token collision")
		seen[token] = true
		assert.GreaterOrEqual(t, len(token), 43)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	}
}
