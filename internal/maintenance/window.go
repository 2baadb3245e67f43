package maintenance

import (
	"fmt"
	"time"
)

// dateFormat is the day-month-year layout used in user-facing messages.
const dateFormat = "02/01/2006"

// TimeOfDay is a wall-clock time without a date, second resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// EndOfDay is the implicit end time for windows without an explicit one.
var EndOfDay = TimeOfDay{Hour: 23, Minute: 59, Second: 59}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second); err != nil {
		t.Second = 0
		if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second
}

// Before reports whether t is strictly earlier than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Duration() < o.Duration()
}

// Date truncates t to its calendar date, keeping the location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At combines a calendar date with a time of day.
func At(date time.Time, tod TimeOfDay) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour, tod.Minute, tod.Second, 0, date.Location())
}

// Window is one maintenance interval: a date range with optional start/end
// times of day. Dates carry no clock component. If either time is present,
// both must be (validated by the orchestrator, not here).
type Window struct {
	StartDate time.Time
	EndDate   time.Time
	StartTime *TimeOfDay
	EndTime   *TimeOfDay
}

// Timed reports whether the window carries explicit times of day.
func (w Window) Timed() bool {
	return w.StartTime != nil && w.EndTime != nil
}

// StartInstant returns the effective start: date+time, or midnight when untimed.
func (w Window) StartInstant() time.Time {
	if w.StartTime != nil {
		return At(w.StartDate, *w.StartTime)
	}
	return Date(w.StartDate)
}

// EndInstant returns the effective end: date+time, or 23:59:59 when untimed.
func (w Window) EndInstant() time.Time {
	if w.EndTime != nil {
		return At(w.EndDate, *w.EndTime)
	}
	return At(w.EndDate, EndOfDay)
}

// Overlaps reports whether two windows on the same asset conflict.
//
// When both windows carry times the comparison is strict on the combined
// instants, so two same-day windows with disjoint time ranges do not conflict.
// When neither carries times the date ranges are compared inclusively. Mixed
// cases fall back to instants with midnight / end-of-day defaults.
func (w Window) Overlaps(o Window) bool {
	switch {
	case w.Timed() && o.Timed():
		return w.StartInstant().Before(o.EndInstant()) && o.StartInstant().Before(w.EndInstant())
	case !w.Timed() && !o.Timed():
		return !Date(w.StartDate).After(Date(o.EndDate)) && !Date(o.StartDate).After(Date(w.EndDate))
	default:
		return w.StartInstant().Before(o.EndInstant()) && o.StartInstant().Before(w.EndInstant())
	}
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.StartInstant()) && !t.After(w.EndInstant())
}

// String renders the date range the way conflict messages present it.
func (w Window) String() string {
	return w.StartDate.Format(dateFormat) + " - " + w.EndDate.Format(dateFormat)
}
