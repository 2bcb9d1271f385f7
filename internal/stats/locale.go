package stats

import (
	"strconv"
	"time"

	"github.com/goodsign/monday"
)

// Swedish renders chart labels in sv-SE, matching the formats the frontend
// charts were built around: "mån 7/4" for weekdays, plain day numbers for
// the month view and "apr 2025" for the year view.
type Swedish struct{}

var _ LabelFormatter = Swedish{}

func (Swedish) WeekdayLabel(t time.Time) string {
	return monday.Format(t, "Mon 2/1", monday.LocaleSvSE)
}

func (Swedish) DayLabel(t time.Time) string {
	return strconv.Itoa(t.Day())
}

func (Swedish) MonthLabel(t time.Time) string {
	return monday.Format(t, "Jan 2006", monday.LocaleSvSE)
}
