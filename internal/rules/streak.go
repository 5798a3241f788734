package rules

import "time"

// DayLayout is the calendar-day format stored as User.LastActiveOn
const DayLayout = "2006-01-02"

// StreakTracker counts consecutive calendar days of activity. All days are
// taken in one location so every caller agrees on where midnight falls.
type StreakTracker struct {
	loc *time.Location
}

// NewStreakTracker creates a tracker for loc; nil means UTC
func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{loc: loc}
}

// Day formats t as a calendar day in the tracker's location
func (s *StreakTracker) Day(t time.Time) string {
	return t.In(s.loc).Format(DayLayout)
}

// Location returns the tracker's time zone
func (s *StreakTracker) Location() *time.Location {
	return s.loc
}

// StreakUpdate is the outcome of recording activity on a day
type StreakUpdate struct {
	Streak   int
	Today    string
	Extended bool
}

// Record returns the streak after activity at now, given the last active
// day ("" when there is none) and the current streak.
func (s *StreakTracker) Record(lastActive string, current int, now time.Time) StreakUpdate {
	today := s.Day(now)
	streak := NextStreak(lastActive, current, today)
	return StreakUpdate{Streak: streak, Today: today, Extended: streak > current}
}

// NextStreak applies the day-difference rule: same day keeps the streak,
// the next day extends it, any larger gap resets it to 1. A last-active day
// after today (clock skew) is treated as the same day.
func NextStreak(lastActive string, current int, today string) int {
	if lastActive == "" {
		return 1
	}
	last, err := time.Parse(DayLayout, lastActive)
	if err != nil {
		return 1
	}
	now, err := time.Parse(DayLayout, today)
	if err != nil {
		return 1
	}

	diff := int(now.Sub(last).Hours() / 24)
	switch {
	case diff <= 0:
		return max(current, 1)
	case diff == 1:
		return current + 1
	default:
		return 1
	}
}
