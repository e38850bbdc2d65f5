// Package calendar holds the pure date helpers the schedule resolver is
// built on: day-of-week bit masks and week boundaries under a configurable
// week-start day. No I/O, no clock.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date-only format used throughout the store.
const DateLayout = "2006-01-02"

// AllDays is the mask with every weekday bit set.
const AllDays = 0x7F

// FormatDate renders a time as a date-only string in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a date-only string into a midnight UTC time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DayBit returns the bit for a weekday. Bit 0 is Sunday, matching
// time.Weekday numbering.
func DayBit(d time.Weekday) int {
	return 1 << uint(d)
}

// HasDay reports whether the weekday bit is set in the mask.
func HasDay(mask int, d time.Weekday) bool {
	return mask&DayBit(d) != 0
}

// WeekStart returns midnight of the first day of the week containing t,
// for the given week-start day.
func WeekStart(t time.Time, weekStart time.Weekday) time.Time {
	t = startOfDay(t)
	diff := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return t.AddDate(0, 0, -diff)
}

// WeekEnd returns midnight of the last day of the week containing t.
func WeekEnd(t time.Time, weekStart time.Weekday) time.Time {
	return WeekStart(t, weekStart).AddDate(0, 0, 6)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
