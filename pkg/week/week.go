// Package week maps a reference date and a configurable first day of week
// onto a concrete seven day calendar window.
//
// Two day numberings exist side by side. Weekday is calendar-fixed
// (0=Sunday ... 6=Saturday) and is what gets stored. DisplayIndex is a
// column position relative to the configured first day and is never stored.
package week

import "time"

// DaysPerWeek is the length of every window.
const DaysPerWeek = 7

// Weekday is a calendar-fixed day number, 0=Sunday through 6=Saturday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Valid reports whether w is within 0..6.
func (w Weekday) Valid() bool { return w >= Sunday && w <= Saturday }

func (w Weekday) String() string {
	if !w.Valid() {
		return "Invalid"
	}
	return time.Weekday(w).String()
}

// DisplayIndex is a column position 0..6 counted from the first day of week.
type DisplayIndex int

// Valid reports whether i is within 0..6.
func (i DisplayIndex) Valid() bool { return i >= 0 && i < DaysPerWeek }

// Window is seven consecutive calendar dates starting on the first day of week.
type Window [DaysPerWeek]Date

// ComputeWindow returns the window containing ref whose first date is the
// most recent occurrence of first on or before ref.
func ComputeWindow(ref Date, first Weekday) Window {
	daysToSubtract := mod7(int(ref.Weekday()) - int(first))
	start := ref.AddDays(-daysToSubtract)

	var w Window
	for i := range w {
		w[i] = start.AddDays(i)
	}
	return w
}

// IndexForWeekday returns the display column of wd when weeks start on first.
func IndexForWeekday(wd, first Weekday) DisplayIndex {
	return DisplayIndex(mod7(int(wd) - int(first)))
}

// WeekdayForIndex is the inverse of IndexForWeekday.
func WeekdayForIndex(idx DisplayIndex, first Weekday) Weekday {
	return Weekday(mod7(int(idx) + int(first)))
}

// Start is the first date of the window.
func (w Window) Start() Date { return w[0] }

// End is the last date of the window.
func (w Window) End() Date { return w[DaysPerWeek-1] }

// At returns the date in display column idx.
func (w Window) At(idx DisplayIndex) Date { return w[mod7(int(idx))] }

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start()) && !d.After(w.End())
}

// IndexOf returns the display column of d, or false if d is outside the window.
func (w Window) IndexOf(d Date) (DisplayIndex, bool) {
	if !w.Contains(d) {
		return 0, false
	}
	return DisplayIndex(w.Start().DaysUntil(d)), true
}

// Dates returns the window as a slice.
func (w Window) Dates() []Date {
	out := make([]Date, DaysPerWeek)
	copy(out, w[:])
	return out
}

func mod7(n int) int {
	return ((n % DaysPerWeek) + DaysPerWeek) % DaysPerWeek
}
