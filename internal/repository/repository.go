// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation; tests
// substitute in-memory mocks.
//
// Multi-write operations that must not half-apply (group + owner membership,
// invite consumption + join, the two role flips of an ownership transfer)
// are single interface methods so an implementation can wrap them in one
// transaction.
package repository

import (
	"context"
	"time"

	"github.com/palmmar/prommis/internal/model"
)

// GroupOverview is a row in a group listing: the group plus the derived
// facts the list pages show.
type GroupOverview struct {
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	OwnerName   string `json:"ownerName"`
	MemberCount int    `json:"memberCount"`
}

// Member is a membership joined with the member's display name.
type Member struct {
	model.Membership
	DisplayName string `json:"displayName"`
}

type UserRepository interface {
	// Upsert inserts the user or, if the ID exists, refreshes the profile
	// fields. CreatedAt is preserved across upserts.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// Delete removes the user; memberships and step entries cascade.
	Delete(ctx context.Context, id string) error
}

type GroupRepository interface {
	// Create inserts the group and the creator's owner membership in one
	// transaction, so owner_id and the owner role can never disagree on a
	// fresh group.
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	// ListForUser returns overviews of the groups the user belongs to,
	// ordered by name.
	ListForUser(ctx context.Context, userID string) ([]GroupOverview, error)
	// ListAll returns overviews of every group, ordered by name. Admin only
	// at the call site.
	ListAll(ctx context.Context) ([]GroupOverview, error)
	// TransferOwnership points owner_id at newOwnerID, promotes the new
	// owner's membership and demotes the current owner's, all in one
	// transaction. Returns ErrNotFound when the group is missing or
	// newOwnerID holds no membership. A missing membership row for
	// currentOwnerID is tolerated: the demotion is skipped.
	TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID string) error
	// Delete removes the group; memberships and invitations cascade.
	Delete(ctx context.Context, id string) error
}

type MembershipRepository interface {
	// GetByGroupAndUser returns the user's membership in the group, or
	// ErrNotFound when there is none.
	GetByGroupAndUser(ctx context.Context, groupID, userID string) (*model.Membership, error)
	// ListByGroup returns the group's members, owner first, then by
	// display name.
	ListByGroup(ctx context.Context, groupID string) ([]Member, error)
	Remove(ctx context.Context, groupID, userID string) error
}

type InvitationRepository interface {
	// Create persists a new invitation. A token collision surfaces as
	// ErrConflict from the unique index — it is never silently replaced.
	Create(ctx context.Context, invite *model.Invitation) error
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	// ListActive returns unused, unexpired invitations for the group,
	// newest first.
	ListActive(ctx context.Context, groupID string, now time.Time) ([]model.Invitation, error)
	// Accept atomically marks the invitation used by userID and creates a
	// member-role membership unless one already exists. Returns ErrNotFound
	// when the invitation is no longer active — including when a concurrent
	// accept won the race.
	Accept(ctx context.Context, invitationID, userID string, now time.Time) error
}

type StepEntryRepository interface {
	Create(ctx context.Context, entry *model.StepEntry) error
	GetByID(ctx context.Context, id string) (*model.StepEntry, error)
	// ListForUserOnDay returns the user's entries for one calendar day,
	// newest created first.
	ListForUserOnDay(ctx context.Context, userID string, day time.Time) ([]model.StepEntry, error)
	// ListForUserInRange returns the user's entries with from <= date <= to.
	ListForUserInRange(ctx context.Context, userID string, from, to time.Time) ([]model.StepEntry, error)
	// ListForGroupInRange returns entries in the date range from every user
	// currently holding a membership in the group — a live join, not a
	// materialized view.
	ListForGroupInRange(ctx context.Context, groupID string, from, to time.Time) ([]model.StepEntry, error)
	Update(ctx context.Context, entry *model.StepEntry) error
	Delete(ctx context.Context, id string) error
}
