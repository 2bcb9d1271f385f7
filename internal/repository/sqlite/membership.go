package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
)

var _ repository.MembershipRepository = (*MembershipDB)(nil)

// MembershipDB implements repository.MembershipRepository.
type MembershipDB struct {
	conn *sql.DB
}

func (m *MembershipDB) GetByGroupAndUser(ctx context.Context, groupID, userID string) (*model.Membership, error) {
	var ms model.Membership
	err := m.conn.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, role, joined_at
		 FROM memberships
		 WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&ms.ID, &ms.GroupID, &ms.UserID, &ms.Role, &ms.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("membership", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting membership %s/%s: %w", groupID, userID, err)
	}
	return &ms, nil
}

// ListByGroup returns the group's members with display names, the owner
// first and the rest ordered by name — the order the members list renders.
func (m *MembershipDB) ListByGroup(ctx context.Context, groupID string) ([]repository.Member, error) {
	rows, err := m.conn.QueryContext(ctx,
		`SELECT ms.id, ms.group_id, ms.user_id, ms.role, ms.joined_at, u.display_name
		 FROM memberships ms
		 JOIN users u ON u.id = ms.user_id
		 WHERE ms.group_id = ?
		 ORDER BY CASE ms.role WHEN 'owner' THEN 0 ELSE 1 END, u.display_name`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of group %s: %w", groupID, err)
	}
	defer rows.Close()

	members := []repository.Member{}
	for rows.Next() {
		var member repository.Member
		if err := rows.Scan(
			&member.ID, &member.GroupID, &member.UserID,
			&member.Role, &member.JoinedAt, &member.DisplayName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating members: %w", err)
	}
	return members, nil
}

func (m *MembershipDB) Remove(ctx context.Context, groupID, userID string) error {
	result, err := m.conn.ExecContext(ctx,
		`DELETE FROM memberships WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing membership %s/%s: %w", groupID, userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("membership", userID)
	}
	return nil
}
