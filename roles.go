package cancel

import "context"

// UserRole is the account role
type UserRole string

const (
	// RoleGuest is an authenticated visitor (i.e. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a regular member, may cancel their own account
	RoleMember UserRole = "member"
	// RoleAdmin administers users, cancellations are mailed for confirmation
	RoleAdmin UserRole = "admin"
	// RoleOwner administers users and cancels accounts immediately
	RoleOwner UserRole = "owner"
)

var roleHierarchy = map[UserRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// RoleAuthorizer grants capabilities from the invoker role. It is the
// default Authorizer when the host does not provide its own.
type RoleAuthorizer struct {
	Grants map[Capability]UserRole
}

// NewRoleAuthorizer returns the default grants: members cancel their own
// account, admins administer users, owners bypass confirmation.
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{
		Grants: map[Capability]UserRole{
			CapabilityCancelOwnAccount:    RoleMember,
			CapabilityAdministerUsers:     RoleAdmin,
			CapabilityCancelOtherAccounts: RoleOwner,
		},
	}
}

// HasCapability implements Authorizer.
func (a *RoleAuthorizer) HasCapability(_ context.Context, invoker Invoker, capability Capability) bool {
	if a == nil {
		return false
	}
	minRole, ok := a.Grants[capability]
	if !ok {
		return false
	}
	return invoker.Role.IsAtLeast(minRole)
}
