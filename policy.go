package cancel

import (
	"strings"
)

// Policy is a cancellation method. The set is closed, new behaviors are
// added here and nowhere else.
type Policy int

const (
	PolicyBlock Policy = iota + 1
	PolicyBlockAndUnpublish
	PolicyReassignToAnonymousAndDelete
	PolicyDeleteAccountAndContent
)

// AccountEffect is what a policy does to the account record.
type AccountEffect int

const (
	AccountEffectBlock AccountEffect = iota + 1
	AccountEffectDelete
)

// ContentEffect is what a policy does to owned content.
type ContentEffect int

const (
	ContentEffectNone ContentEffect = iota
	ContentEffectUnpublish
	ContentEffectReassign
	ContentEffectDelete
)

// PolicyEffects is the declarative outcome of a policy.
type PolicyEffects struct {
	Account AccountEffect
	Content ContentEffect
}

type policyEntry struct {
	id          string
	effects     PolicyEffects
	description string
}

var policyTable = map[Policy]policyEntry{
	PolicyBlock: {
		id:          "user_cancel_block",
		effects:     PolicyEffects{Account: AccountEffectBlock, Content: ContentEffectNone},
		description: "Your account will be blocked and you will no longer be able to log in. All of your content will remain attributed to your username.",
	},
	PolicyBlockAndUnpublish: {
		id:          "user_cancel_block_unpublish",
		effects:     PolicyEffects{Account: AccountEffectBlock, Content: ContentEffectUnpublish},
		description: "Your account will be blocked and you will no longer be able to log in. All of your content will be hidden from everyone but administrators.",
	},
	PolicyReassignToAnonymousAndDelete: {
		id:          "user_cancel_reassign",
		effects:     PolicyEffects{Account: AccountEffectDelete, Content: ContentEffectReassign},
		description: "Your account will be removed and all account information deleted. All of your content will be assigned to the %s user.",
	},
	PolicyDeleteAccountAndContent: {
		id:          "user_cancel_delete",
		effects:     PolicyEffects{Account: AccountEffectDelete, Content: ContentEffectDelete},
		description: "Your account will be removed and all account information deleted. All of your content will also be deleted.",
	},
}

// AllPolicies returns every policy in presentation order.
func AllPolicies() []Policy {
	return []Policy{
		PolicyBlock,
		PolicyBlockAndUnpublish,
		PolicyReassignToAnonymousAndDelete,
		PolicyDeleteAccountAndContent,
	}
}

// IsValid reports whether p is one of the known policies.
func (p Policy) IsValid() bool {
	_, ok := policyTable[p]
	return ok
}

// ID returns the configuration identifier of the policy.
func (p Policy) ID() string {
	return policyTable[p].id
}

func (p Policy) String() string {
	if !p.IsValid() {
		return "unknown"
	}
	return p.ID()
}

// Effects returns the account and content effects of the policy.
func (p Policy) Effects() PolicyEffects {
	return policyTable[p].effects
}

// DeletesAccount reports whether the account record is removed.
func (p Policy) DeletesAccount() bool {
	return p.Effects().Account == AccountEffectDelete
}

// RequiresContentCascade reports whether owned content has to be visited.
func (p Policy) RequiresContentCascade() bool {
	return p.Effects().Content != ContentEffectNone
}

// Description returns the confirmation copy shown before cancelling.
// anonymousName fills the reassignment target for PolicyReassignToAnonymousAndDelete.
func (p Policy) Description(anonymousName string) string {
	entry, ok := policyTable[p]
	if !ok {
		return ""
	}
	if strings.Contains(entry.description, "%s") {
		return strings.Replace(entry.description, "%s", anonymousName, 1)
	}
	return entry.description
}

// PolicyRegistry resolves configured identifiers to policies.
type PolicyRegistry interface {
	Resolve(id string) (Policy, error)
	Effects(p Policy) (PolicyEffects, error)
}

type registry struct {
	byID map[string]Policy
}

// DefaultRegistry is the registry holding the four built-in policies.
var DefaultRegistry PolicyRegistry = NewPolicyRegistry()

// NewPolicyRegistry returns a registry over the built-in policy table.
func NewPolicyRegistry() PolicyRegistry {
	r := &registry{byID: make(map[string]Policy, len(policyTable))}
	for p, entry := range policyTable {
		r.byID[entry.id] = p
	}
	return r
}

func (r *registry) Resolve(id string) (Policy, error) {
	if p, ok := r.byID[strings.TrimSpace(id)]; ok {
		return p, nil
	}
	return 0, ErrUnknownPolicy
}

func (r *registry) Effects(p Policy) (PolicyEffects, error) {
	if !p.IsValid() {
		return PolicyEffects{}, ErrUnknownPolicy
	}
	return p.Effects(), nil
}

// ParsePolicy resolves id against DefaultRegistry.
func ParsePolicy(id string) (Policy, error) {
	return DefaultRegistry.Resolve(id)
}
