package schedule

import (
	"math"
	"time"
)

// AlertTier classifies how overdue a doctor's last recorded visit is.
// Derived per query, never stored. Ordering matters: tiers escalate as the
// visit ages.
type AlertTier int

const (
	// AlertNone means no visit was ever recorded.
	AlertNone AlertTier = iota
	// AlertOK means the last visit is recent (or dated today/in the future).
	AlertOK
	// AlertWarning means the visit is older than the warning threshold.
	AlertWarning
	// AlertCritical means the visit is older than the critical threshold.
	AlertCritical
)

func (t AlertTier) String() string {
	switch t {
	case AlertOK:
		return "ok"
	case AlertWarning:
		return "warning"
	case AlertCritical:
		return "critical"
	}
	return "none"
}

// Thresholds holds the alert boundaries in days. The classifier does not
// validate CriticalDays >= WarningDays; callers own that relationship.
type Thresholds struct {
	WarningDays  int `json:"warningDays"`
	CriticalDays int `json:"criticalDays"`
}

// DefaultThresholds returns the thresholds the legacy report shipped with.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningDays: 30, CriticalDays: 40}
}

// DaysSince returns the whole days elapsed from the recorded date to today,
// rounded up so a visit at any time yesterday counts as one full day. ok is
// false when the date is absent or malformed.
func DaysSince(date string, today time.Time) (int, bool) {
	visited, ok := parseDay(date)
	if !ok {
		return 0, false
	}
	diff := truncateDay(today).Sub(truncateDay(visited))
	return int(math.Ceil(diff.Hours() / 24)), true
}

// ClassifyAlert maps a last-visit date onto an alert tier. A visit dated
// today or in the future is always OK.
func ClassifyAlert(lastVisit string, th Thresholds, today time.Time) AlertTier {
	days, ok := DaysSince(lastVisit, today)
	if !ok {
		return AlertNone
	}
	switch {
	case days <= 0:
		return AlertOK
	case days > th.CriticalDays:
		return AlertCritical
	case days > th.WarningDays:
		return AlertWarning
	}
	return AlertOK
}
