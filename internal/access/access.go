// Package access decides what a user may do with a group.
//
// Ownership has two sources of truth: Group.OwnerID and the membership row
// with the owner role. They are written together transactionally, but either
// one could momentarily be stale, so Resolve always consults both and every
// call site goes through Resolve instead of re-deriving the rules locally.
package access

import "github.com/palmmar/prommis/internal/model"

// Access is the resolved relationship between one user and one group. It is
// returned as part of the group details payload so the frontend can hide
// controls the caller may not use.
type Access struct {
	// HasMembership is true when the user holds a membership row. Platform
	// admins without a row can view, but are never members.
	HasMembership bool `json:"hasMembership"`

	// Role is the membership role, or empty when there is no membership.
	Role model.Role `json:"role,omitempty"`

	// IsOwner is true when either ownership source names the user.
	IsOwner bool `json:"isOwner"`

	// CanView allows reading the group: members list, invites, charts.
	CanView bool `json:"canView"`

	// CanManage allows inviting, removing members and transferring
	// ownership.
	CanManage bool `json:"canManage"`
}

// Resolve computes a user's access to a group. membership is the user's row
// in the group, or nil when they have none. The caller must have resolved an
// authenticated user first — unauthenticated requests never get this far.
func Resolve(group *model.Group, membership *model.Membership, userID string, isAdmin bool) Access {
	a := Access{}

	if membership != nil {
		a.HasMembership = true
		a.Role = membership.Role
	}

	a.IsOwner = (membership != nil && membership.Role == model.RoleOwner) || group.OwnerID == userID
	a.CanView = a.HasMembership || isAdmin
	a.CanManage = a.IsOwner || isAdmin

	return a
}
