package service

import (
	"context"
	"fmt"
	"time"

	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository"
	"github.com/palmmar/prommis/internal/stats"
)

// StatsService builds the week/month/year chart data for users and groups.
// It fetches one date range covering all three windows and lets the
// aggregator slice it.
type StatsService struct {
	entries   repository.StepEntryRepository
	formatter stats.LabelFormatter
	now       func() time.Time
}

// NewStatsService creates a StatsService. The formatter decides the chart
// label language.
func NewStatsService(entries repository.StepEntryRepository, formatter stats.LabelFormatter) *StatsService {
	return &StatsService{
		entries:   entries,
		formatter: formatter,
		now:       time.Now,
	}
}

// UserDashboard builds the three chart series over one user's entries.
func (s *StatsService) UserDashboard(ctx context.Context, userID string) (stats.Dashboard, error) {
	today := model.Day(s.now())
	from, to := chartRange(today)

	entries, err := s.entries.ListForUserInRange(ctx, userID, from, to)
	if err != nil {
		return stats.Dashboard{}, fmt.Errorf("loading step entries: %w", err)
	}
	return stats.BuildDashboard(toStatEntries(entries), today, s.formatter), nil
}

// GroupDashboard builds the three chart series over the combined entries of
// the group's current members. Access control is the caller's job.
func (s *StatsService) GroupDashboard(ctx context.Context, groupID string) (stats.Dashboard, error) {
	today := model.Day(s.now())
	from, to := chartRange(today)

	entries, err := s.entries.ListForGroupInRange(ctx, groupID, from, to)
	if err != nil {
		return stats.Dashboard{}, fmt.Errorf("loading group step entries: %w", err)
	}
	return stats.BuildDashboard(toStatEntries(entries), today, s.formatter), nil
}

// chartRange is the union of the three chart windows: from the first day of
// the year window's opening month through the last day of the current
// month. The week window always falls inside it.
func chartRange(today time.Time) (from, to time.Time) {
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	from = firstOfMonth.AddDate(0, -11, 0)
	to = firstOfMonth.AddDate(0, 1, -1)
	return from, to
}

func toStatEntries(entries []model.StepEntry) []stats.Entry {
	out := make([]stats.Entry, len(entries))
	for i, e := range entries {
		out[i] = stats.Entry{Date: e.Date, Steps: e.Steps}
	}
	return out
}
