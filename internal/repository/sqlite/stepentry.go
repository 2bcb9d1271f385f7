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

var _ repository.StepEntryRepository = (*StepEntryDB)(nil)

// StepEntryDB implements repository.StepEntryRepository.
//
// The date column is stored as ISO text (YYYY-MM-DD), never a timestamp.
// ISO dates compare lexically in the same order as chronologically, so
// range queries are plain BETWEEN comparisons on text.
type StepEntryDB struct {
	conn *sql.DB
}

func (s *StepEntryDB) Create(ctx context.Context, entry *model.StepEntry) error {
	entry.ID = xid.New().String()
	entry.Date = model.Day(entry.Date)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO step_entries (id, user_id, date, steps, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Date.Format(time.DateOnly), entry.Steps, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating step entry: %w", err)
	}
	return nil
}

func (s *StepEntryDB) GetByID(ctx context.Context, id string) (*model.StepEntry, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, date, steps, created_at FROM step_entries WHERE id = ?`,
		id,
	)
	entry, err := scanStepEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("step entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting step entry %s: %w", id, err)
	}
	return entry, nil
}

func (s *StepEntryDB) ListForUserOnDay(ctx context.Context, userID string, day time.Time) ([]model.StepEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, date, steps, created_at
		 FROM step_entries
		 WHERE user_id = ? AND date = ?
		 ORDER BY created_at DESC`,
		userID, model.Day(day).Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing step entries for user %s on day: %w", userID, err)
	}
	defer rows.Close()
	return collectStepEntries(rows)
}

func (s *StepEntryDB) ListForUserInRange(ctx context.Context, userID string, from, to time.Time) ([]model.StepEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, date, steps, created_at
		 FROM step_entries
		 WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, model.Day(from).Format(time.DateOnly), model.Day(to).Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing step entries for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectStepEntries(rows)
}

// ListForGroupInRange joins through the memberships table at query time, so
// the result always reflects the group's current members: entries of a
// removed member disappear from group charts, a new member's history
// appears.
func (s *StepEntryDB) ListForGroupInRange(ctx context.Context, groupID string, from, to time.Time) ([]model.StepEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.date, e.steps, e.created_at
		 FROM step_entries e
		 JOIN memberships m ON m.user_id = e.user_id
		 WHERE m.group_id = ? AND e.date >= ? AND e.date <= ?`,
		groupID, model.Day(from).Format(time.DateOnly), model.Day(to).Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing step entries for group %s: %w", groupID, err)
	}
	defer rows.Close()
	return collectStepEntries(rows)
}

func (s *StepEntryDB) Update(ctx context.Context, entry *model.StepEntry) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE step_entries SET steps = ? WHERE id = ?`,
		entry.Steps, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating step entry %s: %w", entry.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("step entry", entry.ID)
	}
	return nil
}

func (s *StepEntryDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM step_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting step entry %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("step entry", id)
	}
	return nil
}

func scanStepEntry(scan func(dest ...any) error) (*model.StepEntry, error) {
	var (
		entry model.StepEntry
		date  string
	)
	if err := scan(&entry.ID, &entry.UserID, &date, &entry.Steps, &entry.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", date, err)
	}
	entry.Date = parsed
	return &entry, nil
}

func collectStepEntries(rows *sql.Rows) ([]model.StepEntry, error) {
	entries := []model.StepEntry{}
	for rows.Next() {
		entry, err := scanStepEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning step entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating step entries: %w", err)
	}
	return entries, nil
}
