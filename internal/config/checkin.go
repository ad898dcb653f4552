package config

import (
	"time"
)

// CheckInPolicy controls when a ticket may be checked in relative to its
// event's scheduled start.  The window was enforced inconsistently in
// earlier revisions of the platform, so it is configuration rather than a
// hardcoded rule: student-ID check-in always honors the window (it needs
// one to pick among a student's tickets), while QR and booking-code
// check-in only honor it when AllModes is set.
type CheckInPolicy struct {
	Window   time.Duration // allowed interval around the event start (± Window)
	AllModes bool          // apply the window to QR and booking-code check-in too
}

// LoadCheckInPolicy reads the check-in policy from environment variables.
// CHECKIN_WINDOW_MIN defaults to 60 minutes; non-positive values fall back
// to the default rather than disabling the window.
func LoadCheckInPolicy() CheckInPolicy {
	win := envInt("CHECKIN_WINDOW_MIN", 60)
	if win <= 0 {
		win = 60
	}
	return CheckInPolicy{
		Window:   time.Duration(win) * time.Minute,
		AllModes: envBool("CHECKIN_WINDOW_ALL_MODES", false),
	}
}

// InWindow reports whether now falls inside the allowed check-in window
// around startsAt.
func (p CheckInPolicy) InWindow(startsAt, now time.Time) bool {
	diff := now.Sub(startsAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= p.Window
}
