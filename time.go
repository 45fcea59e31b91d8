package cancel

import "time"

// IsWithinWindow checks if t happened no earlier than window before now and
// not after now.
func IsWithinWindow(now, t time.Time, window time.Duration) bool {
	if t.After(now) {
		return false
	}
	return now.Sub(t) <= window
}

// IsOutsideWindow is the negation of IsWithinWindow
func IsOutsideWindow(now, t time.Time, window time.Duration) bool {
	return !IsWithinWindow(now, t, window)
}
