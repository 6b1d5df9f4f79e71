// Package slots computes bookable dates and time slots from the weekly
// schedule, holiday exceptions and the existing appointment ledger.
// Everything here is pure computation; callers fetch the inputs.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MondayIndex converts Go's Sunday-first weekday to the Monday=0..Sunday=6
// indexing used by the work schedule.
func MondayIndex(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// ParseClock parses a wall-clock "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour: %s", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute: %s", s)
	}
	return hour, minute, nil
}

// ClockOnDate combines a "HH:MM" clock with a calendar date in loc.
func ClockOnDate(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}

// FormatClock renders the wall-clock part of t.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// nextHalfHour rounds t up to the next :00/:30 boundary. Instants already
// on a boundary pass through unchanged (seconds dropped).
func nextHalfHour(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	switch m := t.Minute(); {
	case m == 0 || m == 30:
		return t
	case m < 30:
		return t.Add(time.Duration(30-m) * time.Minute)
	default:
		return t.Add(time.Duration(60-m) * time.Minute)
	}
}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DateKey renders a calendar date as YYYY-MM-DD, the canonical key used
// for holiday lookups and callback payloads.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
