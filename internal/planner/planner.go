package planner

import (
	"time"

	"github.com/google/uuid"
)

// Category is the scoring bucket of a task. The set is open at the data
// level (stored as a plain string), but scoring only recognizes the
// categories below; anything else is displayed but never scored.
type Category string

const (
	CategoryMuscles   Category = "muscles"
	CategoryBrains    Category = "brains"
	CategoryEndurance Category = "endurance"
	CategoryMental    Category = "mental"
)

// ScoreAxisDiscipline is the composite axis of the score vector,
// next to the per-category axes.
const ScoreAxisDiscipline = "discipline"

type TaskType string

const (
	TaskTypeStrength TaskType = "muscles"
	TaskTypeSimple   TaskType = "simple"
)

const (
	defaultExerciseName = "Exercise"
	defaultTaskTitle    = "Problem"
)

type Task struct {
	ID        string    `json:"id"`
	Type      TaskType  `json:"type"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`

	// strength fields, set only for TaskTypeStrength
	Exercise string  `json:"exercise,omitempty"`
	Sets     int     `json:"sets,omitempty"`
	Reps     int     `json:"reps,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
}

// NewStrengthTask builds a strength task and enforces its invariants:
// non-empty exercise name (placeholder when omitted) and non-negative,
// finite sets/reps/weight.
func NewStrengthTask(exercise string, sets, reps int, weight float64, createdAt time.Time) Task {
	exercise = trimOrDefault(exercise, defaultExerciseName)
	return Task{
		ID:        uuid.NewString(),
		Type:      TaskTypeStrength,
		Category:  CategoryMuscles,
		Title:     exercise,
		CreatedAt: createdAt,
		Exercise:  exercise,
		Sets:      clampNonNegativeInt(sets),
		Reps:      clampNonNegativeInt(reps),
		Weight:    clampNonNegative(weight),
	}
}

// NewSimpleTask builds a generic task with a non-empty title
// (placeholder when omitted).
func NewSimpleTask(category Category, title string, createdAt time.Time) Task {
	return Task{
		ID:        uuid.NewString(),
		Type:      TaskTypeSimple,
		Category:  category,
		Title:     trimOrDefault(title, defaultTaskTitle),
		CreatedAt: createdAt,
	}
}

type Day struct {
	ID           string    `json:"id"`
	WeekdayIndex int       `json:"weekdayIndex"`
	CreatedAt    time.Time `json:"createdAt"`
	Tasks        []Task    `json:"tasks"`
}

func NewDay(weekdayIndex int, createdAt time.Time) Day {
	return Day{
		ID:           uuid.NewString(),
		WeekdayIndex: weekdayIndex,
		CreatedAt:    createdAt,
		Tasks:        []Task{},
	}
}

// Goal is a target (weight, reps) pair for one exercise, stored under
// the canonical exercise name and compared against logged performance
// via the estimated 1RM.
type Goal struct {
	Weight float64 `json:"weight"`
	Reps   float64 `json:"reps"`
}

type NamedGoal struct {
	Exercise string `json:"exercise"`
	Goal     Goal   `json:"goal"`
}

type Goals struct {
	Muscles map[string]Goal `json:"muscles"`
}

// Profile is opaque to scoring, passthrough only.
type Profile struct {
	Age    string `json:"age"`
	Height string `json:"height"`
	Weight string `json:"weight"`
	Avatar string `json:"avatar"`
}

type State struct {
	Days        []Day   `json:"days"`
	ActiveDayID string  `json:"activeDayId"`
	Streak      int     `json:"streak"`
	TaskFilter  string  `json:"taskFilter"`
	Goals       Goals   `json:"goals"`
	Profile     Profile `json:"profile"`
}

func NewDefaultState(createdAt time.Time) *State {
	day := NewDay(0, createdAt)
	return &State{
		Days:        []Day{day},
		ActiveDayID: day.ID,
		TaskFilter:  "all",
		Goals:       Goals{Muscles: map[string]Goal{}},
	}
}

// ApplyDefaults repairs a state loaded from storage: missing goals map,
// missing task slices and a dangling active day id are defaulted
// best-effort instead of being treated as errors.
func (s *State) ApplyDefaults() {
	if s.Goals.Muscles == nil {
		s.Goals.Muscles = map[string]Goal{}
	}
	for i := range s.Days {
		if s.Days[i].Tasks == nil {
			s.Days[i].Tasks = []Task{}
		}
	}
	if s.TaskFilter == "" {
		s.TaskFilter = "all"
	}
	if s.DayByID(s.ActiveDayID) == nil {
		if len(s.Days) > 0 {
			s.ActiveDayID = s.Days[0].ID
		} else {
			s.ActiveDayID = ""
		}
	}
}

// Clone returns a deep copy, so snapshots handed out for serialization
// are detached from the live state.
func (s *State) Clone() *State {
	cp := *s
	cp.Days = make([]Day, len(s.Days))
	for i, day := range s.Days {
		cp.Days[i] = day
		cp.Days[i].Tasks = make([]Task, len(day.Tasks))
		copy(cp.Days[i].Tasks, day.Tasks)
	}
	cp.Goals.Muscles = make(map[string]Goal, len(s.Goals.Muscles))
	for key, goal := range s.Goals.Muscles {
		cp.Goals.Muscles[key] = goal
	}
	return &cp
}

func (s *State) DayByID(id string) *Day {
	if id == "" {
		return nil
	}
	for i := range s.Days {
		if s.Days[i].ID == id {
			return &s.Days[i]
		}
	}
	return nil
}

// ActiveDay returns the currently selected day, falling back to the
// first day when the selection is missing or dangling.
func (s *State) ActiveDay() *Day {
	if day := s.DayByID(s.ActiveDayID); day != nil {
		return day
	}
	if len(s.Days) > 0 {
		return &s.Days[0]
	}
	return nil
}
