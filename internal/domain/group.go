package domain

import (
	"fmt"
	"time"
)

// Group is a set of people sharing expenses in one currency.
type Group struct {
	ID        string
	Name      string
	Currency  string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is a member's access level within a group.
type Role string

const (
	// RoleOwner manages members and can do everything a member can.
	RoleOwner Role = "owner"

	// RoleMember records expenses and settles debts.
	RoleMember Role = "member"

	// RoleViewer can only read.
	RoleViewer Role = "viewer"
)

// ParseRole validates a role string. An empty string means RoleMember.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleMember, nil
	}
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleMember || r == RoleViewer
}

// CanWrite reports whether the role may record expenses and settlements.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleMember
}

// CanManageMembers reports whether the role may change group membership.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner
}

// Membership binds a user to a group. Balances, splits and settlements
// reference memberships, never users directly.
type Membership struct {
	ID        string
	GroupID   string
	UserID    string
	Role      Role
	CreatedAt time.Time
}
