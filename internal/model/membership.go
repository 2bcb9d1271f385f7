package model

import "time"

// Role is a membership's standing within a group.
//
// It is a closed set of two values, stored as text. There is no hierarchy:
// an Owner is simply a Member with management rights, and a group has
// exactly one Owner membership at any time.
type Role string

const (
	RoleMember Role = "member"
	RoleOwner  Role = "owner"
)

// Membership links a user to a group with a role.
// A user belongs to a group at most once — the database enforces a unique
// (group_id, user_id) index, and memberships are cascade-deleted with their
// group or user.
type Membership struct {
	ID       string    `json:"id"       db:"id"`
	GroupID  string    `json:"groupId"  db:"group_id"`
	UserID   string    `json:"userId"   db:"user_id"`
	Role     Role      `json:"role"     db:"role"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}
