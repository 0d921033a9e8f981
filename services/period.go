package services

import (
	"fmt"
	"time"

	"github.com/hltapp/hlt-server/models"
)

const dateLayout = "2006-01-02"

// PeriodKeys identifies the four calendar windows containing an instant.
// Each key is the YYYY-MM-DD date of the window's first day, so plain string
// equality detects a window change.
type PeriodKeys struct {
	Day   string
	Week  string
	Month string
	Year  string
}

// CurrentPeriods computes the window keys for an instant, evaluated in UTC.
// Weeks start on Monday.
func CurrentPeriods(t time.Time) PeriodKeys {
	t = t.UTC()
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	// Monday == offset 0, Sunday == offset 6.
	offset := (int(day.Weekday()) + 6) % 7
	week := day.AddDate(0, 0, -offset)

	month := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	year := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)

	return PeriodKeys{
		Day:   day.Format(dateLayout),
		Week:  week.Format(dateLayout),
		Month: month.Format(dateLayout),
		Year:  year.Format(dateLayout),
	}
}

// Today returns the current UTC calendar date key.
func Today() string {
	return time.Now().UTC().Format(dateLayout)
}

// Period selects which rolling counter a leaderboard ranks on.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod validates a period query value; the empty string defaults to
// daily.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodDaily, nil
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q: %w", s, ErrValidation)
}

// PointsOf returns the account counter matching the period. The caller is
// responsible for having rolled stale counters over first.
func (p Period) PointsOf(a *models.UserAccount) int {
	switch p {
	case PeriodWeekly:
		return a.WeekPoints
	case PeriodMonthly:
		return a.MonthPoints
	case PeriodYearly:
		return a.YearPoints
	default:
		return a.DayPoints
	}
}
