package planner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExercise(t *testing.T) {
	assert.Equal(t, "bench press", NormalizeExercise("  Bench Press "))
	assert.Equal(t, "squat", NormalizeExercise("SQUAT"))
	assert.Equal(t, "", NormalizeExercise("   "))
	assert.Equal(t, "", NormalizeExercise(""))
}

func TestNewStrengthTask(t *testing.T) {
	now := time.Now()

	task := NewStrengthTask("  Squat ", 3, 5, 100, now)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskTypeStrength, task.Type)
	assert.Equal(t, CategoryMuscles, task.Category)
	assert.Equal(t, "Squat", task.Exercise)
	assert.Equal(t, "Squat", task.Title, "title mirrors the exercise name")
	assert.False(t, task.Done)

	// malformed numbers are clamped, never propagated
	task = NewStrengthTask("deadlift", -2, -5, math.NaN(), now)
	assert.Zero(t, task.Sets)
	assert.Zero(t, task.Reps)
	assert.Zero(t, task.Weight)

	// empty name gets the placeholder
	task = NewStrengthTask("   ", 3, 5, 100, now)
	assert.Equal(t, "Exercise", task.Exercise)
}

func TestNewSimpleTask(t *testing.T) {
	now := time.Now()

	task := NewSimpleTask(CategoryBrains, "chess puzzle", now)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskTypeSimple, task.Type)
	assert.Equal(t, CategoryBrains, task.Category)
	assert.Equal(t, "chess puzzle", task.Title)

	task = NewSimpleTask(CategoryMental, "  ", now)
	assert.Equal(t, "Problem", task.Title)
}

func TestState_ApplyDefaults(t *testing.T) {
	state := &State{
		Days: []Day{
			{ID: "day-1", Tasks: nil},
		},
		ActiveDayID: "no-such-day",
	}

	state.ApplyDefaults()

	assert.NotNil(t, state.Goals.Muscles)
	assert.NotNil(t, state.Days[0].Tasks)
	assert.Equal(t, "all", state.TaskFilter)
	assert.Equal(t, "day-1", state.ActiveDayID, "dangling active day falls back to the first day")

	empty := &State{}
	empty.ApplyDefaults()
	assert.Empty(t, empty.ActiveDayID)
}

func TestState_ActiveDayFallback(t *testing.T) {
	state := NewDefaultState(time.Now())
	require.NotNil(t, state.ActiveDay())

	state.ActiveDayID = "no-such-day"
	day := state.ActiveDay()
	require.NotNil(t, day)
	assert.Equal(t, state.Days[0].ID, day.ID)

	assert.Nil(t, (&State{}).ActiveDay())
}

func TestState_Clone(t *testing.T) {
	now := time.Now()
	state := NewDefaultState(now)
	state.SetGoal("squat", 100, 5)
	state.ActiveDay().Tasks = append(state.ActiveDay().Tasks, NewSimpleTask(CategoryBrains, "read", now))

	clone := state.Clone()
	clone.Days[0].Tasks[0].Done = true
	clone.Days[0].Tasks = append(clone.Days[0].Tasks, NewSimpleTask(CategoryMental, "extra", now))
	clone.Goals.Muscles["deadlift"] = Goal{Weight: 140, Reps: 5}

	assert.False(t, state.Days[0].Tasks[0].Done)
	assert.Len(t, state.Days[0].Tasks, 1)
	assert.Len(t, state.Goals.Muscles, 1)
}
