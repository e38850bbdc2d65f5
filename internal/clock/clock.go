// Package clock answers "what day is it for this family". The configured
// IANA zone decides when a chore day rolls over, so everything that needs
// "today" goes through here instead of time.Now.
package clock

import (
	"log/slog"
	"time"

	"github.com/wrenhall/chorebank/internal/calendar"
	"github.com/wrenhall/chorebank/internal/store"
)

type Clock interface {
	Now() time.Time
	Today() string
	WeekStartDay() time.Weekday
}

var weekStartNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Family reads the zone and week-start day from settings. Unreadable or
// invalid settings fall back to UTC/Monday rather than failing the caller.
type Family struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewFamily(settings *store.SettingsStore, logger *slog.Logger) *Family {
	return &Family{settings: settings, logger: logger}
}

func (c *Family) location() *time.Location {
	name, err := c.settings.Get("timezone")
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		c.logger.Warn("invalid timezone setting", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

func (c *Family) Now() time.Time {
	return time.Now().In(c.location())
}

func (c *Family) Today() string {
	return calendar.FormatDate(c.Now())
}

func (c *Family) WeekStartDay() time.Weekday {
	name, err := c.settings.Get("week_start")
	if err != nil {
		return time.Monday
	}
	if d, ok := weekStartNames[name]; ok {
		return d
	}
	c.logger.Warn("invalid week_start setting", "week_start", name)
	return time.Monday
}

// Fixed is a test clock pinned to one instant.
type Fixed struct {
	T         time.Time
	WeekStart time.Weekday
}

func (f Fixed) Now() time.Time             { return f.T }
func (f Fixed) Today() string              { return calendar.FormatDate(f.T) }
func (f Fixed) WeekStartDay() time.Weekday { return f.WeekStart }
