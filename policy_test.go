package cancel_test

import (
	"testing"

	cancel "github.com/goliatone/go-cancel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyRegistryResolve(t *testing.T) {
	registry := cancel.NewPolicyRegistry()

	tests := []struct {
		id      string
		policy  cancel.Policy
		account cancel.AccountEffect
		content cancel.ContentEffect
	}{
		{"user_cancel_block", cancel.PolicyBlock, cancel.AccountEffectBlock, cancel.ContentEffectNone},
		{"user_cancel_block_unpublish", cancel.PolicyBlockAndUnpublish, cancel.AccountEffectBlock, cancel.ContentEffectUnpublish},
		{"user_cancel_reassign", cancel.PolicyReassignToAnonymousAndDelete, cancel.AccountEffectDelete, cancel.ContentEffectReassign},
		{"user_cancel_delete", cancel.PolicyDeleteAccountAndContent, cancel.AccountEffectDelete, cancel.ContentEffectDelete},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := registry.Resolve(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.policy, p)
			assert.Equal(t, tt.id, p.ID())
			assert.Equal(t, tt.id, p.String())

			effects, err := registry.Effects(p)
			require.NoError(t, err)
			assert.Equal(t, tt.account, effects.Account)
			assert.Equal(t, tt.content, effects.Content)
			assert.Equal(t, tt.account == cancel.AccountEffectDelete, p.DeletesAccount())
			assert.Equal(t, tt.content != cancel.ContentEffectNone, p.RequiresContentCascade())
		})
	}
}

func TestPolicyRegistryUnknown(t *testing.T) {
	_, err := cancel.ParsePolicy("user_cancel_vanish")
	assert.ErrorIs(t, err, cancel.ErrUnknownPolicy)

	_, err = cancel.DefaultRegistry.Effects(cancel.Policy(99))
	assert.ErrorIs(t, err, cancel.ErrUnknownPolicy)

	assert.False(t, cancel.Policy(0).IsValid())
	assert.Equal(t, "unknown", cancel.Policy(0).String())
	assert.Empty(t, cancel.Policy(0).Description("Anonymous"))
}

func TestPolicyDescriptions(t *testing.T) {
	assert.Len(t, cancel.AllPolicies(), 4)
	for _, p := range cancel.AllPolicies() {
		assert.NotEmpty(t, p.Description("Anonymous"), p.ID())
	}

	assert.Contains(t, cancel.PolicyReassignToAnonymousAndDelete.Description("Nobody"), "assigned to the Nobody user")
	assert.NotContains(t, cancel.PolicyBlock.Description("Nobody"), "Nobody")
}
