package contest_service

import "time"

// StatusAt derives where a contest is in its lifecycle. The window is closed
// on both ends: a contest is active at exactly start and at exactly end.
func StatusAt(now, start, end time.Time) ContestStatus {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusEnded
	default:
		return StatusActive
	}
}
