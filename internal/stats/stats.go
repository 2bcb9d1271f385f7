// Package stats turns raw step entries into the dense chart series the
// dashboard renders.
//
// Everything here is a pure function of its inputs: the caller decides which
// entries are in scope (one user's, or everyone in a group) and what "today"
// is, and gets back three label/value series. The series are built from the
// window, not from the data — a bucket with no entries is present with value
// zero, so labels and values always have the same fixed length and the chart
// never has gaps.
package stats

import (
	"time"

	"github.com/palmmar/prommis/internal/model"
)

// Entry is the minimal slice of a step entry the aggregator needs.
type Entry struct {
	Date  time.Time
	Steps int
}

// Series is a chart-ready pair of parallel arrays.
type Series struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// Dashboard bundles the three windows shown on every dashboard.
type Dashboard struct {
	Week  Series `json:"week"`
	Month Series `json:"month"`
	Year  Series `json:"year"`
}

// LabelFormatter renders bucket labels for a fixed locale. It affects label
// text only; bucket boundaries and values are locale-independent.
type LabelFormatter interface {
	// WeekdayLabel renders a day bucket in the week series, e.g. "mån 7/4".
	WeekdayLabel(t time.Time) string
	// DayLabel renders a day bucket in the month series, e.g. "7".
	DayLabel(t time.Time) string
	// MonthLabel renders a month bucket in the year series, e.g. "apr 2025".
	MonthLabel(t time.Time) string
}

// BuildDashboard aggregates entries into week, month and year series
// anchored to today.
//
// Windows, all inclusive:
//   - week:  the 7 days [today-6, today]
//   - month: every day of the calendar month containing today
//   - year:  the 12 calendar months ending with today's month
func BuildDashboard(entries []Entry, today time.Time, f LabelFormatter) Dashboard {
	today = model.Day(today)

	daily := dailyTotals(entries)
	monthly := monthlyTotals(entries)

	return Dashboard{
		Week:  weekSeries(daily, today, f),
		Month: monthSeries(daily, today, f),
		Year:  yearSeries(monthly, today, f),
	}
}

func weekSeries(daily map[time.Time]int, today time.Time, f LabelFormatter) Series {
	s := Series{
		Labels: make([]string, 0, 7),
		Values: make([]int, 0, 7),
	}
	for d := today.AddDate(0, 0, -6); !d.After(today); d = d.AddDate(0, 0, 1) {
		s.Labels = append(s.Labels, f.WeekdayLabel(d))
		s.Values = append(s.Values, daily[d])
	}
	return s
}

func monthSeries(daily map[time.Time]int, today time.Time, f LabelFormatter) Series {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	days := next.Add(-time.Hour).Day() // 28–31
	s := Series{
		Labels: make([]string, 0, days),
		Values: make([]int, 0, days),
	}
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		s.Labels = append(s.Labels, f.DayLabel(d))
		s.Values = append(s.Values, daily[d])
	}
	return s
}

func yearSeries(monthly map[monthKey]int, today time.Time, f LabelFormatter) Series {
	s := Series{
		Labels: make([]string, 0, 12),
		Values: make([]int, 0, 12),
	}
	// Start 11 months back from the first of today's month; stepping from the
	// first of a month never skips or repeats months.
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		s.Labels = append(s.Labels, f.MonthLabel(m))
		s.Values = append(s.Values, monthly[monthKey{m.Year(), m.Month()}])
	}
	return s
}

type monthKey struct {
	year  int
	month time.Month
}

// dailyTotals sums steps per calendar day. Multiple entries on one day are
// legal and add up.
func dailyTotals(entries []Entry) map[time.Time]int {
	totals := make(map[time.Time]int, len(entries))
	for _, e := range entries {
		totals[model.Day(e.Date)] += e.Steps
	}
	return totals
}

func monthlyTotals(entries []Entry) map[monthKey]int {
	totals := make(map[monthKey]int)
	for _, e := range entries {
		d := model.Day(e.Date)
		totals[monthKey{d.Year(), d.Month()}] += e.Steps
	}
	return totals
}
