package schedule

import (
	"strings"
	"time"

	"github.com/wolfman30/medvisit-platform/internal/directory"
)

// DefaultUpcomingWindowDays is the window the "upcoming appointments" toggle
// uses when no explicit span is requested.
const DefaultUpcomingWindowDays = 7

// Criteria is the set of independently optional report filters. Active
// criteria are ANDed; leaving all of them off returns the input unchanged.
type Criteria struct {
	// Search matches case-insensitively against "FirstName LastName".
	Search string
	// Day keeps doctors whose availability for that weekday key is non-blank.
	Day string
	// StructureIDs keeps doctors affiliated with at least one of the ids.
	StructureIDs []string
	// UpcomingWithinDays keeps doctors with an appointment inside
	// [today, today+n], day granularity. Zero disables the filter.
	UpcomingWithinDays int
	// MinAlert keeps doctors whose alert tier is at least this. AlertNone
	// disables the filter.
	MinAlert AlertTier
	// Thresholds configure the alert classification; zero value means the
	// defaults.
	Thresholds Thresholds
	// Today anchors the date-relative filters; zero value means time.Now().
	Today time.Time
}

func (c Criteria) today() time.Time {
	if c.Today.IsZero() {
		return time.Now()
	}
	return c.Today
}

// Filter narrows doctors by every active criterion, preserving input order.
func Filter(doctors []directory.Doctor, c Criteria) []directory.Doctor {
	items := doctors

	if c.Search != "" {
		q := strings.ToLower(c.Search)
		items = keep(items, func(d *directory.Doctor) bool {
			return strings.Contains(strings.ToLower(d.FullName()), q)
		})
	}

	if c.Day != "" {
		items = keep(items, func(d *directory.Doctor) bool {
			return strings.TrimSpace(d.Availability[c.Day]) != ""
		})
	}

	if len(c.StructureIDs) > 0 {
		wanted := make(map[string]bool, len(c.StructureIDs))
		for _, id := range c.StructureIDs {
			wanted[id] = true
		}
		items = keep(items, func(d *directory.Doctor) bool {
			for _, id := range d.StructureIDs {
				if wanted[id] {
					return true
				}
			}
			return false
		})
	}

	if c.UpcomingWithinDays > 0 {
		today := truncateDay(c.today())
		limit := today.AddDate(0, 0, c.UpcomingWithinDays)
		items = keep(items, func(d *directory.Doctor) bool {
			appt, ok := parseDay(d.AppointmentDate)
			if !ok {
				return false
			}
			appt = truncateDay(appt)
			return !appt.Before(today) && !appt.After(limit)
		})
	}

	if c.MinAlert > AlertNone {
		th := c.Thresholds
		if th == (Thresholds{}) {
			th = DefaultThresholds()
		}
		today := c.today()
		items = keep(items, func(d *directory.Doctor) bool {
			return ClassifyAlert(d.LastVisit, th, today) >= c.MinAlert
		})
	}

	return items
}

func keep(in []directory.Doctor, pred func(*directory.Doctor) bool) []directory.Doctor {
	out := make([]directory.Doctor, 0, len(in))
	for i := range in {
		if pred(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}
