package planner

// Per-category caps for the count-based axes: a count of done tasks at
// or above the cap saturates the axis to 1. Configuration, not part of
// the algorithm; revisit the values without touching the scoring code.
var categoryCaps = map[Category]int{
	CategoryBrains:    3,
	CategoryEndurance: 2,
	CategoryMental:    1,
}

// scoredCategories are the radar axes next to the composite discipline
// axis, in display order.
var scoredCategories = []Category{
	CategoryMuscles,
	CategoryBrains,
	CategoryEndurance,
	CategoryMental,
}

// placeholder strength score when strength work was done but no usable
// goal exists yet, so the chart visibly reflects activity.
const noGoalStrengthScore = 0.2

func zeroScores() map[string]float64 {
	scores := make(map[string]float64, len(scoredCategories)+1)
	for _, category := range scoredCategories {
		scores[string(category)] = 0
	}
	scores[ScoreAxisDiscipline] = 0
	return scores
}

// DayScores produces the per-axis score vector in [0,1] for a single
// day: the strength axis is the goal-attainment ratio of that day's
// best efforts, the other recognized categories are capped counts of
// done tasks, and discipline is the fraction of axes with positive
// score. Categories outside the recognized set are ignored. All values
// are finite and clamped regardless of malformed input numbers.
func DayScores(s *State, day *Day) map[string]float64 {
	scores := zeroScores()
	if day == nil {
		return scores
	}

	doneCounts := map[Category]int{}
	for _, task := range day.Tasks {
		if !task.Done || task.Category == CategoryMuscles {
			continue
		}
		doneCounts[task.Category]++
	}
	for category, limit := range categoryCaps {
		if limit <= 0 {
			continue
		}
		count := doneCounts[category]
		if count > limit {
			count = limit
		}
		scores[string(category)] = clamp01(float64(count) / float64(limit))
	}

	scores[string(CategoryMuscles)] = strengthScore(s, day.Tasks)

	positiveAxes := 0
	for _, category := range scoredCategories {
		if scores[string(category)] > 0 {
			positiveAxes++
		}
	}
	scores[ScoreAxisDiscipline] = clamp01(float64(positiveAxes) / float64(len(scoredCategories)))

	return scores
}

// strengthScore is the mean goal-attainment ratio over this day's done
// strength tasks: per exercise only the best estimated 1RM counts, and
// only exercises with a positive goal 1RM enter the mean.
func strengthScore(s *State, tasks []Task) float64 {
	bestByExercise := bestOneRepMaxPerExercise(tasks)
	if len(bestByExercise) == 0 {
		return 0
	}

	var sum float64
	var cnt int
	for exercise, best := range bestByExercise {
		goal, ok := s.GetGoal(exercise)
		if !ok {
			continue
		}
		goalOneRM := EstimateOneRepMax(goal.Weight, goal.Reps)
		if goalOneRM <= 0 {
			continue
		}
		sum += clamp01(best / goalOneRM)
		cnt++
	}

	if cnt == 0 {
		return noGoalStrengthScore
	}
	return clamp01(sum / float64(cnt))
}

// bestOneRepMaxPerExercise groups the done strength tasks by canonical
// exercise name and keeps the maximum estimated 1RM per exercise
// (best effort wins).
func bestOneRepMaxPerExercise(tasks []Task) map[string]float64 {
	best := map[string]float64{}
	for _, task := range tasks {
		if !task.Done || task.Category != CategoryMuscles {
			continue
		}
		name := task.Exercise
		if name == "" {
			name = task.Title
		}
		key := NormalizeExercise(name)
		if key == "" {
			continue
		}
		oneRM := EstimateOneRepMax(task.Weight, float64(task.Reps))
		if oneRM > best[key] {
			best[key] = oneRM
		}
	}
	return best
}

// OverallGoalAttainment is the all-time mean goal-attainment ratio: for
// every exercise with a positive-1RM goal, the best estimated 1RM among
// done strength tasks across all days is compared against the goal 1RM.
// Returns 0 when no goals exist.
func OverallGoalAttainment(s *State) float64 {
	if len(s.Goals.Muscles) == 0 {
		return 0
	}

	best := map[string]float64{}
	for _, day := range s.Days {
		for key, oneRM := range bestOneRepMaxPerExercise(day.Tasks) {
			if oneRM > best[key] {
				best[key] = oneRM
			}
		}
	}

	var sum float64
	var cnt int
	for exercise, goal := range s.Goals.Muscles {
		goalOneRM := EstimateOneRepMax(goal.Weight, goal.Reps)
		if goalOneRM <= 0 {
			continue
		}
		sum += clamp01(best[exercise] / goalOneRM)
		cnt++
	}

	if cnt == 0 {
		return 0
	}
	return clamp01(sum / float64(cnt))
}

// AverageScores computes DayScores for every day independently and
// returns the arithmetic mean per axis. The active-day selection is
// never touched. An all-zero vector is returned when there are no days.
func AverageScores(s *State) map[string]float64 {
	averages := zeroScores()
	if len(s.Days) == 0 {
		return averages
	}

	for i := range s.Days {
		dayScores := DayScores(s, &s.Days[i])
		for axis, score := range dayScores {
			averages[axis] += score
		}
	}
	for axis := range averages {
		averages[axis] = clamp01(averages[axis] / float64(len(s.Days)))
	}
	return averages
}

// ScoreAxisProgress is the extra profile-view axis holding the overall
// goal attainment, next to the multi-day averages.
const ScoreAxisProgress = "progress"

// ProfileScores is the profile radar vector: the multi-day averages
// plus the overall goal attainment on the progress axis.
func ProfileScores(s *State) map[string]float64 {
	scores := AverageScores(s)
	scores[ScoreAxisProgress] = clamp01(OverallGoalAttainment(s))
	return scores
}
