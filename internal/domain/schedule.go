package domain

import (
	"fmt"
	"time"
)

// Schedule is a recurring trip template owned by a company. The bus, route
// and fare references are optional while the schedule is being authored; a
// schedule cannot materialize until all three are set.
type Schedule struct {
	ID            int
	CompanyID     int
	Name          string
	TicketingMode TicketingMode

	// StartTime is the daily departure time of the materialized service.
	StartTime TimeOfDay

	BusID   *int
	RouteID *int
	FareID  *int

	// TriggerOn is the weekday mask; an empty mask never triggers.
	TriggerOn   []Day
	TriggerMode TriggerMode
	TriggerAt   TimeOfDay
	TriggerFrom *time.Time
	TriggerTill *time.Time

	CreatedOn time.Time
	UpdatedOn *time.Time
}

// TimeOfDay is a wall-clock time without a date, stored as minutes since
// midnight in the platform's primary timezone (UTC).
type TimeOfDay int

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At anchors the time of day on the given date.
func (t TimeOfDay) At(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// MinutesOf converts a clock time to a TimeOfDay, discarding the date.
func MinutesOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.UTC().Hour()*60 + t.UTC().Minute())
}

// Complete reports whether the schedule references everything a service
// snapshot needs.
func (s *Schedule) Complete() bool {
	return s.BusID != nil && s.RouteID != nil && s.FareID != nil
}

// TriggersOn reports whether the weekday mask includes the given day.
func (s *Schedule) TriggersOn(day Day) bool {
	for _, d := range s.TriggerOn {
		if d == day {
			return true
		}
	}
	return false
}

// WindowContains reports whether now falls inside the optional
// trigger_from..trigger_till activation window. An unset bound is open.
func (s *Schedule) WindowContains(now time.Time) bool {
	if s.TriggerFrom != nil && now.Before(*s.TriggerFrom) {
		return false
	}
	if s.TriggerTill != nil && now.After(*s.TriggerTill) {
		return false
	}
	return true
}

// DueAt reports whether an automatic schedule is due for evaluation at now:
// the window contains now, the day mask includes today, and trigger_at has
// elapsed. Manual schedules are never due on the timer.
func (s *Schedule) DueAt(now time.Time) bool {
	if s.TriggerMode != TriggerAuto {
		return false
	}
	if !s.WindowContains(now) {
		return false
	}
	now = now.UTC()
	if !s.TriggersOn(DayOf(now.Weekday())) {
		return false
	}
	return MinutesOf(now) >= s.TriggerAt
}
