package history

import (
	"strings"
	"time"
)

// Refill outcome as reported by firmware.
const (
	StatusCompleted = "Completed"
	StatusPartial   = "Partial"
	StatusFailed    = "Failed"
)

// Refill type derived from the firmware action log.
const (
	TypeAutomatic = "Automatic"
	TypeManual    = "Manual"
	TypeScheduled = "Scheduled"
)

// Record is one refill history entry. Level and duration fields are
// pointers because firmware occasionally publishes partial records;
// those render as skipped rows but still count toward totals.
type Record struct {
	ID                string `gorm:"primaryKey;size:64"`
	DeviceID          string `gorm:"primaryKey;size:64;index"`
	Timestamp         int64  `gorm:"index"`
	BeforeLevelPct    *float64
	AfterLevelPct     *float64
	AmountLitersAdded *float64
	DurationMin       *float64
	Status            string `gorm:"size:16"`
	ActionsLog        string
	Notified          bool
	CreatedAt         time.Time
}

// WellFormed reports whether the record has every field required for
// rendering and export.
func (r Record) WellFormed() bool {
	return r.Timestamp > 0 &&
		r.BeforeLevelPct != nil &&
		r.AfterLevelPct != nil &&
		r.AmountLitersAdded != nil &&
		r.DurationMin != nil &&
		r.Status != ""
}

// Type derives the refill type from the action log text.
func (r Record) Type() string {
	switch {
	case strings.Contains(r.ActionsLog, "Auto"), strings.Contains(r.ActionsLog, "Threshold"):
		return TypeAutomatic
	case strings.Contains(r.ActionsLog, "Manual"):
		return TypeManual
	default:
		return TypeScheduled
	}
}

// Time returns the record timestamp as wall-clock time.
func (r Record) Time() time.Time {
	if r.Timestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.Timestamp)
}

// Filter restricts which records are visible. Zero values mean "All".
type Filter struct {
	DaysBack string // "", "All" or a day count such as "7"
	Type     string // "", "All", Automatic, Manual or Scheduled
	Status   string // "", "All", Completed, Partial or Failed
}

// Matches applies the filter to a record, relative to now.
func (f Filter) Matches(r Record, now time.Time) bool {
	cutoff := DateCutoff(f.DaysBack, now)
	if !cutoff.IsZero() && r.Time().Before(cutoff) {
		return false
	}
	if f.Type != "" && f.Type != "All" && r.Type() != f.Type {
		return false
	}
	if f.Status != "" && f.Status != "All" && r.Status != f.Status {
		return false
	}
	return true
}

// DateCutoff computes the inclusive lower bound for the date filter:
// midnight at the start of the day N days back. "All" (or anything
// unparsable) yields the zero time, which includes every record.
func DateCutoff(daysBack string, now time.Time) time.Time {
	if daysBack == "" || daysBack == "All" {
		return time.Time{}
	}

	days := 0
	for _, c := range daysBack {
		if c < '0' || c > '9' {
			return time.Time{}
		}
		days = days*10 + int(c-'0')
	}

	day := now.AddDate(0, 0, -days)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}
