package learner

import (
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// A streak is the count of consecutive UTC calendar days with at least one
// recorded activity. The calculator is a pure function so it can be tested
// in isolation; the ProgressRecord applies its result.
// ══════════════════════════════════════════════════════════════════════════════

// StreakUpdate is the result of applying one day of activity to a streak.
type StreakUpdate struct {
	// CurrentStreak - streak after the update.
	CurrentStreak int

	// PreviousStreak - streak before the update. A break notification
	// reports this, not the post-reset value.
	PreviousStreak int

	// BestStreak - best streak after the update (never decreases).
	BestStreak int

	// LastActivityDate - activity date after the update.
	LastActivityDate time.Time

	// Extended - true when the streak grew (first activity or next-day activity).
	Extended bool

	// Broken - true when a previously positive streak was reset to 1.
	Broken bool

	// DaysMissed - calendar days skipped when the streak broke (0 otherwise).
	DaysMissed int
}

// UpdateStreak computes the new streak state for activity on the given day.
//
// Rules, by whole calendar days between lastActivity and today:
//   - 0 days: already active today, nothing changes.
//   - 1 day: the streak continues and grows by one.
//   - anything else (missed days, or a clock moving backwards): reset to 1.
//
// A zero lastActivity means this is the learner's first ever activity.
// BestStreak is raised to CurrentStreak whenever it is exceeded.
func UpdateStreak(lastActivity, today time.Time, currentStreak, bestStreak int) StreakUpdate {
	todayDate := timeutil.DateOf(today)

	if lastActivity.IsZero() {
		u := StreakUpdate{
			CurrentStreak:    1,
			PreviousStreak:   currentStreak,
			BestStreak:       bestStreak,
			LastActivityDate: todayDate,
			Extended:         true,
		}
		if u.CurrentStreak > u.BestStreak {
			u.BestStreak = u.CurrentStreak
		}
		return u
	}

	lastDate := timeutil.DateOf(lastActivity)
	daysDiff := timeutil.DaysBetween(lastDate, todayDate)

	switch {
	case daysDiff == 0:
		// Same day - no change, keep the previous activity date.
		return StreakUpdate{
			CurrentStreak:    currentStreak,
			PreviousStreak:   currentStreak,
			BestStreak:       bestStreak,
			LastActivityDate: lastDate,
		}
	case daysDiff == 1:
		u := StreakUpdate{
			CurrentStreak:    currentStreak + 1,
			PreviousStreak:   currentStreak,
			BestStreak:       bestStreak,
			LastActivityDate: todayDate,
			Extended:         true,
		}
		if u.CurrentStreak > u.BestStreak {
			u.BestStreak = u.CurrentStreak
		}
		return u
	default:
		// Missed one or more days, or the clock went backwards.
		u := StreakUpdate{
			CurrentStreak:    1,
			PreviousStreak:   currentStreak,
			BestStreak:       bestStreak,
			LastActivityDate: todayDate,
			Broken:           currentStreak > 1,
		}
		if daysDiff > 1 {
			u.DaysMissed = daysDiff - 1
		}
		if u.CurrentStreak > u.BestStreak {
			u.BestStreak = u.CurrentStreak
		}
		return u
	}
}

// IsStreakAtRisk reports whether the streak will break unless the learner
// is active today (last activity was exactly yesterday).
func IsStreakAtRisk(lastActivity, now time.Time, currentStreak int) bool {
	if lastActivity.IsZero() || currentStreak == 0 {
		return false
	}
	return timeutil.DaysBetween(lastActivity, now) == 1
}
