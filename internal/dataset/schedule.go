package dataset

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Cadence describes how often a pipeline should run.
type Cadence string

const (
	Always  Cadence = "always"
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

// ParseCadence converts a configuration value into a Cadence. An empty
// value means Always.
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "":
		return Always, nil
	case Always, Daily, Weekly, Monthly:
		return c, nil
	}
	return "", eris.Errorf("dataset: unknown cadence %q (valid: always, daily, weekly, monthly)", s)
}

// ShouldRun reports whether a pipeline last succeeding at lastSuccess is due
// at now. A nil lastSuccess is always due.
func (c Cadence) ShouldRun(now time.Time, lastSuccess *time.Time) bool {
	switch c {
	case Daily:
		return DailySchedule(now, lastSuccess)
	case Weekly:
		return WeeklySchedule(now, lastSuccess)
	case Monthly:
		return MonthlySchedule(now, lastSuccess)
	default:
		return true
	}
}

// MonthlySchedule returns true if no run succeeded in the current month.
func MonthlySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lastSync.Before(thisMonth)
}

// WeeklySchedule returns true if no run succeeded since Monday of the
// current ISO week.
func WeeklySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-(weekday-1), 0, 0, 0, 0, time.UTC)
	return lastSync.Before(weekStart)
}

// DailySchedule returns true if no run succeeded today.
func DailySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return lastSync.Before(today)
}
