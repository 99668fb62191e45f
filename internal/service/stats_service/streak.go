package stats_service

import (
	"slices"
	"time"
)

const secondsPerDay = 24 * 60 * 60

type Streak struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// dayNumber maps t to the index of its calendar day in loc. Indexes of
// consecutive days differ by exactly one regardless of DST or year changes.
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	sec := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	day := sec / secondsPerDay
	if sec%secondsPerDay < 0 {
		day--
	}
	return day
}

// CalculateStreak derives the current and longest run of consecutive active
// days from a submission calendar keyed by unix seconds. Only the presence of
// a key matters. The current streak is zero unless the latest active day is
// today or yesterday in loc.
func CalculateStreak(calendar map[int64]int, now time.Time, loc *time.Location) Streak {
	if len(calendar) == 0 {
		return Streak{}
	}
	if loc == nil {
		loc = time.Local
	}

	days := make([]int64, 0, len(calendar))
	for ts := range calendar {
		days = append(days, dayNumber(time.Unix(ts, 0), loc))
	}
	slices.Sort(days)
	days = slices.Compact(days)

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		switch gap := days[i] - days[i-1]; {
		case gap == 1:
			run++
		case gap == 0:
			// duplicate day, nothing to count
		default:
			run = 1
		}
		longest = max(longest, run)
	}

	latest := days[len(days)-1]
	if dayNumber(now, loc)-latest > 1 {
		return Streak{Current: 0, Longest: longest}
	}

	current := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i]-days[i-1] != 1 {
			break
		}
		current++
	}

	return Streak{Current: current, Longest: longest}
}
