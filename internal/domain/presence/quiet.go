package presence

import "time"

// hoursPerDay is the value normalized to midnight when configured as a bound.
const hoursPerDay = 24

// QuietHours is a time-of-day window during which callbacks should avoid
// disruptive actions. The window never blocks a transition.
type QuietHours struct {
	// Start is the first quiet hour (0-23).
	Start int
	// End is the first hour after the window (0-23).
	End int
}

// Disabled reports whether the gate is switched off.
func (q QuietHours) Disabled() bool {
	return normalizeHour(q.Start) == normalizeHour(q.End)
}

// Active reports whether now falls inside the window.
func (q QuietHours) Active(now time.Time) bool {
	return IsQuiet(now, q.Start, q.End)
}

// IsQuiet reports whether now.Hour() lies within [start, end).
// Equal bounds never match, so 0/0 disables the gate; start > end wraps past midnight.
func IsQuiet(now time.Time, start, end int) bool {
	start, end = normalizeHour(start), normalizeHour(end)
	hour := now.Hour()

	switch {
	case start == end:
		return false
	case start < end:
		return start <= hour && hour < end
	default:
		return hour >= start || hour < end
	}
}

func normalizeHour(h int) int {
	if h == hoursPerDay {
		return 0
	}

	return h
}
