package planner

import (
	"math"
	"sort"
	"time"
)

// IsDayCompleted reports whether a day counts toward the streak: it must
// have at least one task and every task must be done. A freshly created
// empty day is never completed.
func IsDayCompleted(day Day) bool {
	if len(day.Tasks) == 0 {
		return false
	}
	for _, task := range day.Tasks {
		if !task.Done {
			return false
		}
	}
	return true
}

// ComputeStreak counts the run of consecutive fully-completed calendar
// days ending at the most recent day. Days are bucketed by the local
// midnight of their creation time; the walk goes backward from the most
// recent day and stops at the first incomplete day or at any calendar
// gap (day difference != 1). Pure function of the day/task records;
// callers must recompute it after every mutation instead of patching
// the cached value incrementally.
func ComputeStreak(s *State) int {
	if len(s.Days) == 0 {
		return 0
	}

	days := make([]Day, len(s.Days))
	copy(days, s.Days)
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].CreatedAt.Before(days[j].CreatedAt)
	})

	streak := 0
	var prevDayStart time.Time

	for i := len(days) - 1; i >= 0; i-- {
		day := days[i]
		if !IsDayCompleted(day) {
			break
		}

		start := startOfDay(day.CreatedAt)
		if streak == 0 {
			streak = 1
			prevDayStart = start
			continue
		}

		diffDays := int(math.Round(prevDayStart.Sub(start).Hours() / 24))
		if diffDays != 1 {
			break
		}

		streak++
		prevDayStart = start
	}

	return streak
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
