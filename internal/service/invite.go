package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/palmmar/prommis/internal/access"
	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
)

// InviteTTL is how long an invitation stays valid after creation.
const InviteTTL = 7 * 24 * time.Hour

const inviteTokenBytes = 32

// InviteService handles the invitation lifecycle: issuing tokens, the
// public-ish preview behind a token, and acceptance.
type InviteService struct {
	groups      repository.GroupRepository
	memberships repository.MembershipRepository
	invites     repository.InvitationRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewInviteService creates an InviteService.
func NewInviteService(
	groups repository.GroupRepository,
	memberships repository.MembershipRepository,
	invites repository.InvitationRepository,
	logger *slog.Logger,
) *InviteService {
	return &InviteService{
		groups:      groups,
		memberships: memberships,
		invites:     invites,
		logger:      logger,
		now:         time.Now,
	}
}

// InvitePreview is what the join page shows before the user commits: which
// group the token opens and how long it lasts. Nothing else about the group
// leaks through a token.
type InvitePreview struct {
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Create issues a new single-use invitation for the group. Owner or
// administrator only.
func (s *InviteService) Create(ctx context.Context, actorID string, isAdmin bool, groupID string) (*model.Invitation, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ctx, group, actorID, isAdmin) {
		return nil, apperror.Forbidden("only the owner can create invitations")
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generating invite token: %w", err)
	}

	now := s.now().UTC()
	invite := &model.Invitation{
		GroupID:     groupID,
		Token:       token,
		CreatedByID: actorID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(InviteTTL),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		s.logger.Error("failed to create invitation",
			slog.String("group", groupID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating invitation: %w", err)
	}

	s.logger.Info("invitation created",
		slog.String("group", groupID),
		slog.String("createdBy", actorID),
	)
	return invite, nil
}

// Preview resolves a token to the group it opens. An unknown, used or
// expired token all produce the same error, so a token probe learns nothing
// about which of the three it hit.
func (s *InviteService) Preview(ctx context.Context, token string) (*InvitePreview, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, errInviteInvalid()
		}
		return nil, err
	}
	if !invite.IsActive(s.now()) {
		return nil, errInviteInvalid()
	}

	group, err := s.groups.GetByID(ctx, invite.GroupID)
	if err != nil {
		return nil, err
	}

	return &InvitePreview{
		GroupID:   group.ID,
		GroupName: group.Name,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// Accept consumes the token and enrolls the acting user as a member,
// returning the joined group's id. Accepting an invite to a group the user
// already belongs to burns the token and succeeds without a second
// membership.
func (s *InviteService) Accept(ctx context.Context, actorID, token string) (string, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return "", errInviteInvalid()
		}
		return "", err
	}
	if !invite.IsActive(s.now()) {
		return "", errInviteInvalid()
	}

	// The repository re-checks the active condition inside the accept
	// transaction; losing that race reports the same way as an expired
	// token.
	if err := s.invites.Accept(ctx, invite.ID, actorID, s.now()); err != nil {
		if isNotFound(err) {
			return "", errInviteInvalid()
		}
		return "", fmt.Errorf("accepting invitation: %w", err)
	}

	s.logger.Info("invitation accepted",
		slog.String("group", invite.GroupID),
		slog.String("user", actorID),
	)
	return invite.GroupID, nil
}

func (s *InviteService) canManage(ctx context.Context, group *model.Group, actorID string, isAdmin bool) bool {
	membership, err := s.memberships.GetByGroupAndUser(ctx, group.ID, actorID)
	if err != nil {
		membership = nil
	}
	return access.Resolve(group, membership, actorID, isAdmin).CanManage
}

// errInviteInvalid is the single answer for every dead token: unknown,
// already used or expired.
func errInviteInvalid() error {
	return &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "invitation is invalid or has expired",
	}
}

// generateInviteToken returns 32 random bytes as unpadded URL-safe base64,
// giving 256 bits of entropy in a string that can sit in a path segment.
func generateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
