package cancel_test

import (
	"context"
	"testing"

	cancel "github.com/goliatone/go-cancel"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokerFromContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		want     cancel.Invoker
		wantOK   bool
	}{
		{
			name: "should return invoker when present in context",
			setupCtx: func() context.Context {
				return cancel.WithInvoker(context.Background(), invoker(3, cancel.RoleAdmin))
			},
			want:   invoker(3, cancel.RoleAdmin),
			wantOK: true,
		},
		{
			name: "should return false when no invoker in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has a foreign value",
			setupCtx: func() context.Context {
				type otherKey struct{}
				return context.WithValue(context.Background(), otherKey{}, invoker(3, cancel.RoleAdmin))
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cancel.InvokerFromContext(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanFromContext(t *testing.T) {
	authorizer := cancel.NewRoleAuthorizer()

	tests := []struct {
		name       string
		ctx        context.Context
		capability cancel.Capability
		want       bool
	}{
		{
			name:       "member can cancel own account",
			ctx:        cancel.WithInvoker(context.Background(), invoker(4, cancel.RoleMember)),
			capability: cancel.CapabilityCancelOwnAccount,
			want:       true,
		},
		{
			name:       "member cannot administer users",
			ctx:        cancel.WithInvoker(context.Background(), invoker(4, cancel.RoleMember)),
			capability: cancel.CapabilityAdministerUsers,
			want:       false,
		},
		{
			name:       "admin cannot bypass confirmation",
			ctx:        cancel.WithInvoker(context.Background(), invoker(3, cancel.RoleAdmin)),
			capability: cancel.CapabilityCancelOtherAccounts,
			want:       false,
		},
		{
			name:       "missing invoker",
			ctx:        context.Background(),
			capability: cancel.CapabilityCancelOwnAccount,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cancel.CanFromContext(tt.ctx, authorizer, tt.capability))
		})
	}
}

func TestInvokerMiddleware(t *testing.T) {
	f := newFixture(cancel.PolicyBlock)
	mw := cancel.InvokerMiddleware(cancel.JWTInvokerResolver(cancel.InvokerSigningKey(f.opts)))

	var got cancel.Invoker
	var found bool
	handler := mw(func(ctx router.Context) error {
		got, found = cancel.InvokerFromContext(ctx.Context())
		return nil
	})

	ctx := newRequest(t, bearer(t, f, invoker(5, cancel.RoleMember)), nil, nil)
	require.NoError(t, handler(ctx))
	assert.True(t, found)
	assert.Equal(t, invoker(5, cancel.RoleMember), got)

	ctx = newRequest(t, "", nil, nil)
	require.NoError(t, handler(ctx))
	assert.False(t, found)

	ctx = newRequest(t, "Bearer not-a-jwt", nil, nil)
	require.NoError(t, handler(ctx))
	assert.False(t, found)
}
