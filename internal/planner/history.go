package planner

import (
	"sort"
	"time"
)

// Attempt is one logged try of an exercise, as shown in history charts.
type Attempt struct {
	Date   time.Time `json:"date"`
	Sets   int       `json:"sets"`
	Reps   int       `json:"reps"`
	Weight float64   `json:"weight"`
	Done   bool      `json:"done"`
}

// HistoryFor returns every logged attempt of the given exercise across
// all days, ordered by ascending date with a stable tie-break on input
// order. Legacy entries without an exercise name fall back to the task
// title. Recomputed on every call, never cached.
func (s *State) HistoryFor(exercise string) []Attempt {
	key := NormalizeExercise(exercise)
	if key == "" {
		return []Attempt{}
	}

	attempts := []Attempt{}
	for _, day := range s.Days {
		for _, task := range day.Tasks {
			if task.Category != CategoryMuscles {
				continue
			}
			name := task.Exercise
			if name == "" {
				name = task.Title
			}
			if NormalizeExercise(name) != key {
				continue
			}

			date := day.CreatedAt
			if date.IsZero() {
				date = task.CreatedAt
			}
			attempts = append(attempts, Attempt{
				Date:   date,
				Sets:   task.Sets,
				Reps:   task.Reps,
				Weight: task.Weight,
				Done:   task.Done,
			})
		}
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].Date.Before(attempts[j].Date)
	})
	return attempts
}
