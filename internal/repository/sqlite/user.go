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

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

// Upsert inserts the user or refreshes display_name/updated_at if the ID
// already exists. CreatedAt is never overwritten: the identity provider may
// re-announce a user on every sign-in.
func (u *UserDB) Upsert(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     display_name = excluded.display_name,
		     updated_at   = excluded.updated_at`,
		user.ID, user.DisplayName, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %s: %w", user.ID, err)
	}

	// Reflect the stored created_at back so repeated upserts report the
	// original timestamp.
	err = u.conn.QueryRowContext(ctx,
		`SELECT created_at FROM users WHERE id = ?`, user.ID,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %s: %w", user.ID, err)
	}

	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, display_name, created_at, updated_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &user, nil
}

// Delete removes the user. Memberships and step entries cascade via foreign
// keys; groups the user owns do not (owner_id has no cascade), so deleting
// an owner fails until their groups are transferred or deleted.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	result, err := u.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
