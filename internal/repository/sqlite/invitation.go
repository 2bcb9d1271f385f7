package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
)

var _ repository.InvitationRepository = (*InvitationDB)(nil)

// InvitationDB implements repository.InvitationRepository.
type InvitationDB struct {
	conn *sql.DB
}

// Create persists a new invitation. The unique index on token turns a
// collision into ErrConflict — at 256 bits of entropy that should never
// happen, but if it does it must fail loudly rather than overwrite.
func (i *InvitationDB) Create(ctx context.Context, invite *model.Invitation) error {
	invite.ID = xid.New().String()
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}

	_, err := i.conn.ExecContext(ctx,
		`INSERT INTO invitations (id, group_id, token, created_by_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		invite.ID, invite.GroupID, invite.Token, invite.CreatedByID,
		invite.CreatedAt, invite.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("invitation", invite.Token)
		}
		return fmt.Errorf("sqlite: creating invitation: %w", err)
	}
	return nil
}

func (i *InvitationDB) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	row := i.conn.QueryRowContext(ctx,
		`SELECT id, group_id, token, created_by_id, accepted_by_id, created_at, expires_at, used_at
		 FROM invitations
		 WHERE token = ?`,
		token,
	)

	invite, err := scanInvitation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("invitation", token)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting invitation by token: %w", err)
	}
	return invite, nil
}

// ListActive returns the group's unused, unexpired invitations, newest
// first.
func (i *InvitationDB) ListActive(ctx context.Context, groupID string, now time.Time) ([]model.Invitation, error) {
	rows, err := i.conn.QueryContext(ctx,
		`SELECT id, group_id, token, created_by_id, accepted_by_id, created_at, expires_at, used_at
		 FROM invitations
		 WHERE group_id = ? AND used_at IS NULL AND expires_at >= ?
		 ORDER BY created_at DESC`,
		groupID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active invitations for group %s: %w", groupID, err)
	}
	defer rows.Close()

	invites := []model.Invitation{}
	for rows.Next() {
		invite, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning invitation: %w", err)
		}
		invites = append(invites, *invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating invitations: %w", err)
	}
	return invites, nil
}

// Accept consumes the invitation and enrolls userID, atomically.
//
// The consumption is a conditional UPDATE: it only matches while the
// invitation is still unused and unexpired, so of two concurrent accepts
// exactly one sees a row change and the loser gets ErrNotFound — the same
// outcome as an expired token. The membership insert ignores the unique
// (group_id, user_id) conflict: an existing member accepting an invite
// burns the token without gaining a second membership.
func (i *InvitationDB) Accept(ctx context.Context, invitationID, userID string, now time.Time) error {
	now = now.UTC()

	tx, err := i.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE invitations
		 SET used_at = ?, accepted_by_id = ?
		 WHERE id = ? AND used_at IS NULL AND expires_at >= ?`,
		now, userID, invitationID, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: consuming invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("invitation", invitationID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memberships (id, group_id, user_id, role, joined_at)
		 SELECT ?, group_id, ?, ?, ?
		 FROM invitations WHERE id = ?
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		xid.New().String(), userID, model.RoleMember, now, invitationID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating membership from invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing invitation accept: %w", err)
	}
	return nil
}

// scanInvitation reads one invitation row, converting the two nullable
// columns to pointers.
func scanInvitation(scan func(dest ...any) error) (*model.Invitation, error) {
	var (
		invite     model.Invitation
		acceptedBy sql.NullString
		usedAt     sql.NullTime
	)
	err := scan(
		&invite.ID, &invite.GroupID, &invite.Token, &invite.CreatedByID,
		&acceptedBy, &invite.CreatedAt, &invite.ExpiresAt, &usedAt,
	)
	if err != nil {
		return nil, err
	}
	if acceptedBy.Valid {
		invite.AcceptedByID = &acceptedBy.String
	}
	if usedAt.Valid {
		t := usedAt.Time
		invite.UsedAt = &t
	}
	return &invite, nil
}
