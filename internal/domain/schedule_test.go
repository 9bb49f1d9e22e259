package domain

import (
	"testing"
	"time"
)

func TestTimeOfDay(t *testing.T) {
	tod := TimeOfDay(8*60 + 5)
	if got := tod.String(); got != "08:05" {
		t.Errorf("String() = %q, want %q", got, "08:05")
	}
	at := tod.At(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC))
	want := time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("At() = %v, want %v", at, want)
	}
	if got := MinutesOf(want); got != tod {
		t.Errorf("MinutesOf() = %d, want %d", got, tod)
	}
}

func TestDayOf(t *testing.T) {
	cases := []struct {
		weekday time.Weekday
		want    Day
	}{
		{time.Monday, Monday},
		{time.Wednesday, Wednesday},
		{time.Saturday, Saturday},
		{time.Sunday, Sunday},
	}
	for _, tc := range cases {
		if got := DayOf(tc.weekday); got != tc.want {
			t.Errorf("DayOf(%v) = %d, want %d", tc.weekday, got, tc.want)
		}
	}
}

func TestScheduleDueAt(t *testing.T) {
	// 2026-03-02 is a Monday.
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	from := monday.Add(-48 * time.Hour)
	till := monday.Add(48 * time.Hour)

	base := Schedule{
		TriggerOn:   []Day{Monday, Friday},
		TriggerMode: TriggerAuto,
		TriggerAt:   TimeOfDay(8 * 60),
		TriggerFrom: &from,
		TriggerTill: &till,
	}

	cases := []struct {
		name   string
		mutate func(s *Schedule)
		now    time.Time
		want   bool
	}{
		{"due monday after trigger time", func(s *Schedule) {}, monday, true},
		{"before trigger time", func(s *Schedule) {}, monday.Add(-2 * time.Hour), false},
		{"wrong weekday", func(s *Schedule) {}, monday.Add(24 * time.Hour), false},
		{"manual never due", func(s *Schedule) { s.TriggerMode = TriggerManual }, monday, false},
		{"before window opens", func(s *Schedule) {
			f := monday.Add(time.Hour)
			s.TriggerFrom = &f
		}, monday, false},
		{"after window closes", func(s *Schedule) {
			tl := monday.Add(-time.Hour)
			s.TriggerTill = &tl
		}, monday, false},
		{"open window bounds", func(s *Schedule) {
			s.TriggerFrom = nil
			s.TriggerTill = nil
		}, monday, true},
		{"empty day mask", func(s *Schedule) { s.TriggerOn = nil }, monday, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base
			tc.mutate(&s)
			if got := s.DueAt(tc.now); got != tc.want {
				t.Errorf("DueAt(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestScheduleComplete(t *testing.T) {
	id := 1
	s := Schedule{}
	if s.Complete() {
		t.Error("empty schedule reported complete")
	}
	s.BusID, s.RouteID = &id, &id
	if s.Complete() {
		t.Error("schedule without fare reported complete")
	}
	s.FareID = &id
	if !s.Complete() {
		t.Error("fully referenced schedule reported incomplete")
	}
}
