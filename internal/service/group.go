// Package service contains the business logic layer: validation, access
// decisions and orchestration between repositories. Services speak in
// domain types and apperror values; they know nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/palmmar/prommis/internal/access"
	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
	"github.com/palmmar/prommis/internal/stats"
)

// MaxGroupNameLength bounds group names, matching the storage column the
// frontend was built against.
const MaxGroupNameLength = 100

// GroupService handles group lifecycle, membership management and the
// group detail view.
type GroupService struct {
	groups      repository.GroupRepository
	memberships repository.MembershipRepository
	invites     repository.InvitationRepository
	stats       *StatsService
	logger      *slog.Logger
	now         func() time.Time
}

// NewGroupService creates a GroupService.
func NewGroupService(
	groups repository.GroupRepository,
	memberships repository.MembershipRepository,
	invites repository.InvitationRepository,
	statsService *StatsService,
	logger *slog.Logger,
) *GroupService {
	return &GroupService{
		groups:      groups,
		memberships: memberships,
		invites:     invites,
		stats:       statsService,
		logger:      logger,
		now:         time.Now,
	}
}

// GroupDetails is everything the group page shows: the group itself, the
// caller's standing in it, members, active invites and the three chart
// series.
type GroupDetails struct {
	Group         *model.Group        `json:"group"`
	Access        access.Access       `json:"access"`
	Members       []repository.Member `json:"members"`
	ActiveInvites []model.Invitation  `json:"activeInvites"`
	Charts        stats.Dashboard     `json:"charts"`
}

// Create makes a new group owned by the acting user. The owner membership
// is created in the same transaction as the group row.
func (s *GroupService) Create(ctx context.Context, actorID, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "group name is required")
	}
	if len(name) > MaxGroupNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("group name must be %d characters or less", MaxGroupNameLength))
	}

	group := &model.Group{
		Name:    name,
		OwnerID: actorID,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		s.logger.Error("failed to create group",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating group: %w", err)
	}

	s.logger.Info("group created",
		slog.String("id", group.ID),
		slog.String("owner", actorID),
	)
	return group, nil
}

// ListMine returns overviews of the groups the acting user belongs to.
func (s *GroupService) ListMine(ctx context.Context, actorID string) ([]repository.GroupOverview, error) {
	overviews, err := s.groups.ListForUser(ctx, actorID)
	if err != nil {
		s.logger.Error("failed to list groups", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return overviews, nil
}

// ListAll returns every group. Administrator only.
func (s *GroupService) ListAll(ctx context.Context, isAdmin bool) ([]repository.GroupOverview, error) {
	if !isAdmin {
		return nil, apperror.Forbidden("administrator role required")
	}
	overviews, err := s.groups.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list all groups", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing all groups: %w", err)
	}
	return overviews, nil
}

// Details loads the full group page: membership list, active invites and
// charts. Members see it by membership, admins by role; everyone else gets
// ErrForbidden. The group lookup comes first so a missing group is a 404
// even for non-members — the group page URL is not a secret.
func (s *GroupService) Details(ctx context.Context, actorID string, isAdmin bool, groupID string) (*GroupDetails, error) {
	group, _, a, err := s.resolveAccess(ctx, actorID, isAdmin, groupID)
	if err != nil {
		return nil, err
	}
	if !a.CanView {
		return nil, apperror.Forbidden("you are not a member of this group")
	}

	members, err := s.memberships.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	invites, err := s.invites.ListActive(ctx, groupID, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing active invites: %w", err)
	}

	charts, err := s.stats.GroupDashboard(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("building group charts: %w", err)
	}

	return &GroupDetails{
		Group:         group,
		Access:        a,
		Members:       members,
		ActiveInvites: invites,
		Charts:        charts,
	}, nil
}

// RemoveMember removes a member from the group. Requires management rights.
// The current owner can never be removed — ownership must be transferred
// first, so a group always keeps exactly one owner.
func (s *GroupService) RemoveMember(ctx context.Context, actorID string, isAdmin bool, groupID, memberID string) error {
	group, _, a, err := s.resolveAccess(ctx, actorID, isAdmin, groupID)
	if err != nil {
		return err
	}
	if !a.CanManage {
		return apperror.Forbidden("only the owner can remove members")
	}
	if memberID == group.OwnerID {
		return apperror.ValidationFailed("memberId", "the owner cannot be removed; transfer ownership first")
	}

	if err := s.memberships.Remove(ctx, groupID, memberID); err != nil {
		return err
	}

	s.logger.Info("member removed",
		slog.String("group", groupID),
		slog.String("member", memberID),
		slog.String("actor", actorID),
	)
	return nil
}

// TransferOwnership hands the group to another existing member. Only the
// owner themself may transfer — unlike invites and removals, an
// administrator cannot do this on the owner's behalf.
func (s *GroupService) TransferOwnership(ctx context.Context, actorID, groupID, newOwnerID string) error {
	_, _, a, err := s.resolveAccess(ctx, actorID, false, groupID)
	if err != nil {
		return err
	}
	if !a.IsOwner {
		return apperror.Forbidden("only the owner can transfer ownership")
	}
	if newOwnerID == actorID {
		return apperror.ValidationFailed("newOwnerId", "you already own this group")
	}

	if err := s.groups.TransferOwnership(ctx, groupID, actorID, newOwnerID); err != nil {
		return err
	}

	s.logger.Info("ownership transferred",
		slog.String("group", groupID),
		slog.String("from", actorID),
		slog.String("to", newOwnerID),
	)
	return nil
}

// resolveAccess loads the group and the actor's membership and computes
// their access. Shared by every group operation so the dual ownership check
// lives in exactly one place.
func (s *GroupService) resolveAccess(ctx context.Context, actorID string, isAdmin bool, groupID string) (*model.Group, *model.Membership, access.Access, error) {
	if actorID == "" {
		return nil, nil, access.Access{}, apperror.Unauthorized()
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, nil, access.Access{}, err
	}

	membership, err := s.memberships.GetByGroupAndUser(ctx, groupID, actorID)
	if err != nil {
		if !isNotFound(err) {
			return nil, nil, access.Access{}, fmt.Errorf("loading membership: %w", err)
		}
		membership = nil
	}

	return group, membership, access.Resolve(group, membership, actorID, isAdmin), nil
}
