// Package schedule resolves which chores apply on a calendar date:
// recurring weekly patterns, per-date overrides, and weekly-frequency
// quotas combined into one authoritative list.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/wrenhall/chorebank/internal/calendar"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

type Resolver struct {
	cache     *DefinitionCache
	overrides *store.OverrideStore
	logs      *store.ChoreLogStore
	clk       clock.Clock
}

func NewResolver(cache *DefinitionCache, overrides *store.OverrideStore, logs *store.ChoreLogStore, clk clock.Clock) *Resolver {
	return &Resolver{cache: cache, overrides: overrides, logs: logs, clk: clk}
}

// ChoresForDate returns the effective chore list for a date: recurring
// chores whose day bit is set and whose bounds contain the date, minus
// Remove overrides, plus Add/Move overrides, sorted by (sort order, name).
func (r *Resolver) ChoresForDate(date time.Time) ([]model.ChoreDefinition, error) {
	return r.resolve(date, nil)
}

// ChoresForMember is ChoresForDate filtered to one assignee. Override
// assignees are honored: an Add override carrying a different member moves
// the chore to that member for the day.
func (r *Resolver) ChoresForMember(memberID int64, date time.Time) ([]model.ChoreDefinition, error) {
	return r.resolve(date, &memberID)
}

func (r *Resolver) resolve(date time.Time, memberID *int64) ([]model.ChoreDefinition, error) {
	dateStr := calendar.FormatDate(date)

	defs, err := r.cache.GetActive()
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	byID := make(map[int64]model.ChoreDefinition, len(defs))
	inSet := make(map[int64]int) // chore id -> index into result
	var result []model.ChoreDefinition

	for _, d := range defs {
		byID[d.ID] = d
		if calendar.HasDay(d.ActiveDays, date.Weekday()) && withinBounds(&d, dateStr) {
			inSet[d.ID] = len(result)
			result = append(result, d)
		}
	}

	// Overrides are read uncached; they mutate far too often to be worth
	// a staleness window.
	overrides, err := r.overrides.ListForDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	removed := make(map[int64]bool)
	for _, o := range overrides {
		switch o.Type {
		case model.OverrideRemove:
			removed[o.ChoreID] = true

		case model.OverrideAdd, model.OverrideMove:
			if i, ok := inSet[o.ChoreID]; ok {
				applyOverride(&result[i], &o)
				continue
			}
			d, ok := byID[o.ChoreID]
			if !ok {
				// Definition deactivated since the override was written.
				continue
			}
			applyOverride(&d, &o)
			inSet[o.ChoreID] = len(result)
			result = append(result, d)
		}
	}

	filtered := result[:0]
	for _, d := range result {
		if removed[d.ID] {
			continue
		}
		if memberID != nil && (d.AssignedTo == nil || *d.AssignedTo != *memberID) {
			continue
		}
		filtered = append(filtered, d)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].SortOrder != filtered[j].SortOrder {
			return filtered[i].SortOrder < filtered[j].SortOrder
		}
		return filtered[i].Name < filtered[j].Name
	})
	return filtered, nil
}

func applyOverride(d *model.ChoreDefinition, o *model.ScheduleOverride) {
	if o.AssignedTo != nil {
		v := *o.AssignedTo
		d.AssignedTo = &v
	}
	if o.Value != nil {
		d.EarnValue = *o.Value
	}
}

// withinBounds checks [StartDate, EndDate] containment. ISO dates compare
// correctly as strings.
func withinBounds(d *model.ChoreDefinition, date string) bool {
	if d.StartDate != nil && date < *d.StartDate {
		return false
	}
	if d.EndDate != nil && date > *d.EndDate {
		return false
	}
	return true
}

// Progress describes one weekly-frequency chore's standing in a week.
// Completed counts attempted logs (completed or approved); Approved counts
// credited ones. The target is met on approved count alone.
type Progress struct {
	ChoreID   int64  `json:"chore_id"`
	Name      string `json:"name"`
	Target    int    `json:"target"`
	Completed int    `json:"completed"`
	Approved  int    `json:"approved"`
	TargetMet bool   `json:"target_met"`
}

// WeeklyProgress computes per-chore weekly-frequency progress for the week
// containing anyDate. The whole week's logs come from a single range read.
func (r *Resolver) WeeklyProgress(memberID int64, anyDate time.Time) (map[int64]Progress, error) {
	weekStart := calendar.WeekStart(anyDate, r.clk.WeekStartDay())
	weekEnd := calendar.WeekEnd(anyDate, r.clk.WeekStartDay())
	startStr := calendar.FormatDate(weekStart)
	endStr := calendar.FormatDate(weekEnd)

	defs, err := r.cache.GetActive()
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	progress := make(map[int64]Progress)
	for _, d := range defs {
		if d.ScheduleType != model.ScheduleWeeklyFrequency {
			continue
		}
		if d.AssignedTo == nil || *d.AssignedTo != memberID {
			continue
		}
		if !windowIntersects(&d, startStr, endStr) {
			continue
		}
		progress[d.ID] = Progress{
			ChoreID: d.ID,
			Name:    d.Name,
			Target:  d.WeeklyTargetCount,
		}
	}
	if len(progress) == 0 {
		return progress, nil
	}

	logs, err := r.logs.ListRange(startStr, endStr)
	if err != nil {
		return nil, fmt.Errorf("load week logs: %w", err)
	}

	for _, l := range logs {
		p, ok := progress[l.ChoreID]
		if !ok {
			continue
		}
		switch l.Status {
		case model.StatusCompleted:
			p.Completed++
		case model.StatusApproved:
			p.Completed++
			p.Approved++
		}
		p.TargetMet = p.Approved >= p.Target
		progress[l.ChoreID] = p
	}
	return progress, nil
}

func windowIntersects(d *model.ChoreDefinition, weekStart, weekEnd string) bool {
	if d.StartDate != nil && *d.StartDate > weekEnd {
		return false
	}
	if d.EndDate != nil && *d.EndDate < weekStart {
		return false
	}
	return true
}
