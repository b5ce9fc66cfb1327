package charts

import "time"

// SupportedWindows is the fixed set of precomputed lookback windows, in days.
// The recompute orchestrator materializes every chart for each of these;
// anything else is served by the on-demand path.
var SupportedWindows = []int{7, 30, 90, 180, 365}

// SupportedWindow reports whether days is one of the precomputed windows.
func SupportedWindow(days int) bool {
	for _, d := range SupportedWindows {
		if d == days {
			return true
		}
	}
	return false
}

// Window is a lookback period ending at the moment it was derived.
type Window struct {
	Days  int
	Start time.Time
}

// NewWindow derives a window of the given length ending at now.
func NewWindow(now time.Time, days int) Window {
	return Window{Days: days, Start: now.UTC().AddDate(0, 0, -days)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start)
}

// dayKey truncates a timestamp to its UTC calendar date.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// monthKey truncates a timestamp to its UTC calendar month.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// monthStart returns the first instant of t's UTC calendar month.
func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
