package planner

import "sort"

// SetGoal upserts the goal for an exercise under its canonical name.
// No-op when the name canonicalizes to empty.
func (s *State) SetGoal(exercise string, weight, reps float64) {
	key := NormalizeExercise(exercise)
	if key == "" {
		return
	}
	if s.Goals.Muscles == nil {
		s.Goals.Muscles = map[string]Goal{}
	}
	s.Goals.Muscles[key] = Goal{
		Weight: clampNonNegative(weight),
		Reps:   clampNonNegative(reps),
	}
}

// RemoveGoal deletes the goal for an exercise, no-op when absent.
func (s *State) RemoveGoal(exercise string) {
	key := NormalizeExercise(exercise)
	if key == "" {
		return
	}
	delete(s.Goals.Muscles, key)
}

// GetGoal looks up the goal for an exercise; the lookup canonicalizes
// the name the same way SetGoal does.
func (s *State) GetGoal(exercise string) (Goal, bool) {
	key := NormalizeExercise(exercise)
	if key == "" {
		return Goal{}, false
	}
	goal, ok := s.Goals.Muscles[key]
	return goal, ok
}

// ListGoals returns all goals sorted by canonical exercise name, so the
// display order is stable across calls.
func (s *State) ListGoals() []NamedGoal {
	goals := make([]NamedGoal, 0, len(s.Goals.Muscles))
	for exercise, goal := range s.Goals.Muscles {
		goals = append(goals, NamedGoal{Exercise: exercise, Goal: goal})
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].Exercise < goals[j].Exercise
	})
	return goals
}
