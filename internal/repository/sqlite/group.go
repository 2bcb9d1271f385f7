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

var _ repository.GroupRepository = (*GroupDB)(nil)

// GroupDB implements repository.GroupRepository.
type GroupDB struct {
	conn *sql.DB
}

// Create inserts the group and the creator's owner membership in a single
// transaction. If either insert fails, neither persists — a group must never
// exist without its owner membership.
func (g *GroupDB) Create(ctx context.Context, group *model.Group) error {
	group.ID = xid.New().String()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		group.ID, group.Name, group.OwnerID, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memberships (id, group_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		xid.New().String(), group.ID, group.OwnerID, model.RoleOwner, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing group create: %w", err)
	}
	return nil
}

func (g *GroupDB) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := g.conn.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM groups WHERE id = ?`,
		id,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting group %s: %w", id, err)
	}
	return &group, nil
}

// ListForUser returns overviews of the groups the user is a member of,
// ordered by name.
func (g *GroupDB) ListForUser(ctx context.Context, userID string) ([]repository.GroupOverview, error) {
	rows, err := g.conn.QueryContext(ctx,
		`SELECT gr.id, gr.name, owner.display_name,
		        (SELECT COUNT(*) FROM memberships mc WHERE mc.group_id = gr.id)
		 FROM memberships m
		 JOIN groups gr ON gr.id = m.group_id
		 JOIN users owner ON owner.id = gr.owner_id
		 WHERE m.user_id = ?
		 ORDER BY gr.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanOverviews(rows)
}

// ListAll returns overviews of every group, ordered by name.
func (g *GroupDB) ListAll(ctx context.Context) ([]repository.GroupOverview, error) {
	rows, err := g.conn.QueryContext(ctx,
		`SELECT gr.id, gr.name, owner.display_name,
		        (SELECT COUNT(*) FROM memberships mc WHERE mc.group_id = gr.id)
		 FROM groups gr
		 JOIN users owner ON owner.id = gr.owner_id
		 ORDER BY gr.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups: %w", err)
	}
	defer rows.Close()

	return scanOverviews(rows)
}

func scanOverviews(rows *sql.Rows) ([]repository.GroupOverview, error) {
	overviews := []repository.GroupOverview{}
	for rows.Next() {
		var o repository.GroupOverview
		if err := rows.Scan(&o.GroupID, &o.Name, &o.OwnerName, &o.MemberCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning group overview: %w", err)
		}
		overviews = append(overviews, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating group overviews: %w", err)
	}
	return overviews, nil
}

// TransferOwnership reassigns the group to newOwnerID in one transaction:
// promote the new owner's membership, repoint owner_id, demote the old
// owner's membership. The promotion runs first so a new owner without a
// membership row aborts the whole transfer with ErrNotFound. A missing row
// for the old owner only skips the demotion — the transfer itself restores
// the group to a consistent single-owner state.
func (g *GroupDB) TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID string) error {
	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE memberships SET role = ? WHERE group_id = ? AND user_id = ?`,
		model.RoleOwner, groupID, newOwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: promoting new owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("membership", newOwnerID)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE groups SET owner_id = ? WHERE id = ?`,
		newOwnerID, groupID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating group owner: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("group", groupID)
	}

	if currentOwnerID != newOwnerID {
		_, err = tx.ExecContext(ctx,
			`UPDATE memberships SET role = ? WHERE group_id = ? AND user_id = ?`,
			model.RoleMember, groupID, currentOwnerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: demoting old owner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing ownership transfer: %w", err)
	}
	return nil
}

func (g *GroupDB) Delete(ctx context.Context, id string) error {
	result, err := g.conn.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting group %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("group", id)
	}
	return nil
}
