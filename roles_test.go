package cancel_test

import (
	"context"
	"testing"

	cancel "github.com/goliatone/go-cancel"
	"github.com/stretchr/testify/assert"
)

func TestRoleAuthorizerDefaultGrants(t *testing.T) {
	authz := cancel.NewRoleAuthorizer()
	ctx := context.Background()

	tests := []struct {
		role  cancel.UserRole
		own   bool
		admin bool
		other bool
	}{
		{cancel.RoleGuest, false, false, false},
		{cancel.RoleMember, true, false, false},
		{cancel.RoleAdmin, true, true, false},
		{cancel.RoleOwner, true, true, true},
		{cancel.UserRole("intruder"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			inv := cancel.Invoker{ID: 10, Role: tt.role}
			assert.Equal(t, tt.own, authz.HasCapability(ctx, inv, cancel.CapabilityCancelOwnAccount))
			assert.Equal(t, tt.admin, authz.HasCapability(ctx, inv, cancel.CapabilityAdministerUsers))
			assert.Equal(t, tt.other, authz.HasCapability(ctx, inv, cancel.CapabilityCancelOtherAccounts))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := cancel.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, cancel.RoleAdmin, role)

	_, ok = cancel.ParseRole("root")
	assert.False(t, ok)
}
