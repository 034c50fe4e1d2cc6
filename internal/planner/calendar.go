package planner

import (
	"fmt"
	"time"

	"github.com/edt-planner/edt-api/internal/models"
)

// Window is a canonical daily teaching interval, minutes from midnight.
type Window struct {
	StartMin int
	EndMin   int
}

// Working windows are fixed for the whole institution: two morning and two
// afternoon blocks separated by breaks.
var workingWindows = []Window{
	{StartMin: 8 * 60, EndMin: 10 * 60},         // 08:00–10:00
	{StartMin: 10*60 + 15, EndMin: 12*60 + 15},  // 10:15–12:15
	{StartMin: 13*60 + 30, EndMin: 15*60 + 30},  // 13:30–15:30
	{StartMin: 15*60 + 45, EndMin: 17*60 + 45},  // 15:45–17:45
}

// Slot is a placeable interval aligned on a working window.
type Slot struct {
	StartMin int
	EndMin   int
}

// Calendar answers date arithmetic questions for one generation run. It is
// immutable once built.
type Calendar struct {
	closings []models.ClosingPeriod
}

// NewCalendar builds a calendar over the run's closing periods.
func NewCalendar(closings []models.ClosingPeriod) *Calendar {
	return &Calendar{closings: closings}
}

// SlotsForDuration enumerates the canonical slots of the given length, in
// daily order. A one hour course yields two slots per window; a two hour
// course yields exactly one slot starting at each window start.
func SlotsForDuration(hours int) []Slot {
	if hours <= 0 {
		hours = 1
	}
	length := hours * 60
	var slots []Slot
	for _, window := range workingWindows {
		for start := window.StartMin; start+length <= window.EndMin; start += 60 {
			slots = append(slots, Slot{StartMin: start, EndMin: start + length})
		}
	}
	return slots
}

// InsideWorkingWindow reports whether [startMin, endMin] is a canonical slot.
func InsideWorkingWindow(startMin, endMin int) bool {
	for _, window := range workingWindows {
		if startMin < window.StartMin || endMin > window.EndMin {
			continue
		}
		if (startMin-window.StartMin)%60 == 0 {
			return true
		}
	}
	return false
}

// MondayOf truncates to midnight UTC and rewinds to the ISO week start.
func MondayOf(t time.Time) time.Time {
	day := Midnight(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Midnight normalises a timestamp to its UTC date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// At combines a date with minutes from midnight.
func At(day time.Time, minutes int) time.Time {
	return Midnight(day).Add(time.Duration(minutes) * time.Minute)
}

// MinuteOfDay extracts minutes from midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsClosed reports whether the date falls inside any closing period.
func (c *Calendar) IsClosed(day time.Time) bool {
	for i := range c.closings {
		if c.closings[i].Contains(day) {
			return true
		}
	}
	return false
}

// WorkingDays lists the open weekdays (Mon..Fri) of a week, earliest first.
func (c *Calendar) WorkingDays(weekStart time.Time) []time.Time {
	monday := MondayOf(weekStart)
	var days []time.Time
	for offset := 0; offset < 5; offset++ {
		day := monday.AddDate(0, 0, offset)
		if c.IsClosed(day) {
			continue
		}
		days = append(days, day)
	}
	return days
}

// WeeksIn returns the ordered Monday week-starts intersecting [start, end],
// skipping weeks whose every weekday is closed.
func (c *Calendar) WeeksIn(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	var weeks []time.Time
	for current := MondayOf(start); !current.After(Midnight(end)); current = current.AddDate(0, 0, 7) {
		if len(c.WorkingDays(current)) == 0 {
			continue
		}
		weeks = append(weeks, current)
	}
	return weeks
}

// WeekLabel renders a human week header: "S42 2025 — 13/10 → 19/10".
func WeekLabel(weekStart time.Time) string {
	monday := MondayOf(weekStart)
	isoYear, isoWeek := monday.ISOWeek()
	sunday := monday.AddDate(0, 0, 6)
	return fmt.Sprintf("S%02d %d — %s → %s",
		isoWeek, isoYear, monday.Format("02/01"), sunday.Format("02/01"))
}

// ClockRange renders "08:00–10:00" for display rows.
func ClockRange(startMin, endMin int) string {
	return fmt.Sprintf("%02d:%02d–%02d:%02d",
		startMin/60, startMin%60, endMin/60, endMin%60)
}
