package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/palmmar/prommis/internal/apperror"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
)

// Step count bounds per entry. The upper bound is generous — roughly a
// double marathon — but keeps fat-fingered and hostile values out of the
// charts.
const (
	MinSteps = 1
	MaxSteps = 200000
)

// StepService handles step entry logging. Entries are always recorded for
// the current day, and only today's own entries can be changed or removed.
type StepService struct {
	entries repository.StepEntryRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewStepService creates a StepService.
func NewStepService(entries repository.StepEntryRepository, logger *slog.Logger) *StepService {
	return &StepService{
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}
}

// Add records a step entry for the acting user, dated today. Multiple
// entries per day are fine; they sum in the charts.
func (s *StepService) Add(ctx context.Context, actorID string, steps int) (*model.StepEntry, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	entry := &model.StepEntry{
		UserID: actorID,
		Date:   model.Day(s.now()),
		Steps:  steps,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		s.logger.Error("failed to create step entry",
			slog.String("user", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating step entry: %w", err)
	}

	s.logger.Info("step entry created",
		slog.String("id", entry.ID),
		slog.String("user", actorID),
		slog.Int("steps", steps),
	)
	return entry, nil
}

// Edit changes the step count of one of the acting user's entries from
// today. Someone else's entry reads as not found rather than forbidden, so
// entry ids stay unprobeable; an own entry from an earlier day is
// forbidden — history is append-only once the day rolls over.
func (s *StepService) Edit(ctx context.Context, actorID, entryID string, steps int) (*model.StepEntry, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	entry, err := s.getOwnTodayEntry(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}

	entry.Steps = steps
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("updating step entry: %w", err)
	}

	s.logger.Info("step entry updated",
		slog.String("id", entryID),
		slog.Int("steps", steps),
	)
	return entry, nil
}

// Delete removes one of the acting user's entries from today, under the
// same ownership and same-day rules as Edit.
func (s *StepService) Delete(ctx context.Context, actorID, entryID string) error {
	if _, err := s.getOwnTodayEntry(ctx, actorID, entryID); err != nil {
		return err
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		return fmt.Errorf("deleting step entry: %w", err)
	}

	s.logger.Info("step entry deleted", slog.String("id", entryID))
	return nil
}

// Today returns the acting user's entries for the current day, newest
// first, along with their sum.
func (s *StepService) Today(ctx context.Context, actorID string) ([]model.StepEntry, int, error) {
	entries, err := s.entries.ListForUserOnDay(ctx, actorID, s.now())
	if err != nil {
		return nil, 0, fmt.Errorf("listing today's step entries: %w", err)
	}
	total := 0
	for _, e := range entries {
		total += e.Steps
	}
	return entries, total, nil
}

func (s *StepService) getOwnTodayEntry(ctx context.Context, actorID, entryID string) (*model.StepEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != actorID {
		return nil, apperror.NotFound("step entry", entryID)
	}
	if !model.Day(entry.Date).Equal(model.Day(s.now())) {
		return nil, apperror.Forbidden("only today's entries can be changed")
	}
	return entry, nil
}

func validateSteps(steps int) error {
	if steps < MinSteps || steps > MaxSteps {
		return apperror.ValidationFailed("steps",
			fmt.Sprintf("steps must be between %d and %d", MinSteps, MaxSteps))
	}
	return nil
}
