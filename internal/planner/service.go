package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/velyko/planner/internal/telemetry/metrics"
	"github.com/velyko/planner/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// TaskPayload carries the raw "add task" input. The category decides the
// task kind: CategoryMuscles makes a strength task from the exercise
// fields, anything else a simple task from the title. Field-presence
// invariants are enforced by the task constructors, not here.
type TaskPayload struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Exercise string   `json:"exercise"`
	Sets     int      `json:"sets"`
	Reps     int      `json:"reps"`
	Weight   float64  `json:"weight"`
}

// Service owns the single in-process state record. All mutating
// operations run under one mutex, recompute the cached streak and
// persist the whole state before returning, so derived data is never
// observed stale after a mutation.
type Service struct {
	mutex   sync.Mutex
	state   *State
	repo    StateRepo
	metrics *metrics.Manager

	// revision changes on every applied mutation; read caches key on it
	revision uint64

	// ability to inject the clock (for unit and dev testing)
	TimeNowFunc func() time.Time
}

func NewService(ctx context.Context, repo StateRepo, metricsManager *metrics.Manager) (*Service, error) {
	s := &Service{
		repo:        repo,
		metrics:     metricsManager,
		TimeNowFunc: time.Now,
	}

	state, err := repo.Load(ctx)
	switch {
	case err == nil:
		s.state = state
	case errors.Is(err, ErrStateNotFound):
		log.Debugln("no stored planner state, starting fresh")
		s.state = NewDefaultState(s.TimeNowFunc())
		if err := repo.Save(ctx, s.state); err != nil {
			return nil, fmt.Errorf("save initial state: %w", err)
		}
	default:
		// a corrupt blob must not brick the planner, start over
		log.Errorf("load planner state, starting fresh: %s", err)
		s.state = NewDefaultState(s.TimeNowFunc())
		if err := repo.Save(ctx, s.state); err != nil {
			return nil, fmt.Errorf("save initial state: %w", err)
		}
	}

	s.state.Streak = ComputeStreak(s.state)
	s.metrics.GaugeStreak.Set(float64(s.state.Streak))
	return s, nil
}

// finishMutation refreshes the streak cache and persists the state.
// Must be called with the mutex held, after every applied mutation.
func (s *Service) finishMutation(ctx context.Context) error {
	s.state.Streak = ComputeStreak(s.state)
	s.metrics.GaugeStreak.Set(float64(s.state.Streak))
	s.revision++
	if err := s.repo.Save(ctx, s.state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Service) AddDay(ctx context.Context) (_ Day, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.addDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	nextIndex := 0
	if len(s.state.Days) > 0 {
		nextIndex = (s.state.Days[len(s.state.Days)-1].WeekdayIndex + 1) % 7
	}

	day := NewDay(nextIndex, s.TimeNowFunc())
	s.state.Days = append(s.state.Days, day)
	s.state.ActiveDayID = day.ID

	s.metrics.CounterDaysAdded.Inc()
	log.Tracef("day added: %s [weekday %d]", day.ID, day.WeekdayIndex)

	return day, s.finishMutation(ctx)
}

func (s *Service) SetActiveDay(ctx context.Context, dayID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.setActiveDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state.DayByID(dayID) == nil {
		return nil
	}
	s.state.ActiveDayID = dayID
	return s.finishMutation(ctx)
}

func (s *Service) MoveActiveDay(ctx context.Context, delta int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.moveActiveDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	idx := -1
	for i := range s.state.Days {
		if s.state.Days[i].ID == s.state.ActiveDayID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	next := idx + delta
	if next < 0 || next >= len(s.state.Days) {
		return nil
	}

	s.state.ActiveDayID = s.state.Days[next].ID
	return s.finishMutation(ctx)
}

// ResetActiveDay bulk-deletes all tasks of the active day.
func (s *Service) ResetActiveDay(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.resetActiveDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	day := s.state.ActiveDay()
	if day == nil {
		return nil
	}
	day.Tasks = []Task{}
	return s.finishMutation(ctx)
}

func (s *Service) SetTaskFilter(ctx context.Context, filter string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.setTaskFilter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state.TaskFilter = filter
	return s.finishMutation(ctx)
}

func (s *Service) AddTask(ctx context.Context, payload TaskPayload) (_ Task, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.addTask")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	day := s.state.ActiveDay()
	if day == nil {
		return Task{}, nil
	}

	var task Task
	if payload.Category == CategoryMuscles {
		task = NewStrengthTask(payload.Exercise, payload.Sets, payload.Reps, payload.Weight, s.TimeNowFunc())
	} else {
		task = NewSimpleTask(payload.Category, payload.Title, s.TimeNowFunc())
	}

	day.Tasks = append(day.Tasks, task)

	s.metrics.CounterTasksAdded.Inc()
	log.Tracef("task added to day %s: [%s] %s", day.ID, task.Category, task.Title)

	return task, s.finishMutation(ctx)
}

func (s *Service) ToggleTask(ctx context.Context, taskID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.toggleTask")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	day := s.state.ActiveDay()
	if day == nil {
		return nil
	}

	for i := range day.Tasks {
		if day.Tasks[i].ID == taskID {
			day.Tasks[i].Done = !day.Tasks[i].Done
			s.metrics.CounterTasksToggled.Inc()
			return s.finishMutation(ctx)
		}
	}
	return nil
}

func (s *Service) DeleteTask(ctx context.Context, taskID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.deleteTask")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	day := s.state.ActiveDay()
	if day == nil {
		return nil
	}

	for i := range day.Tasks {
		if day.Tasks[i].ID == taskID {
			day.Tasks = append(day.Tasks[:i], day.Tasks[i+1:]...)
			return s.finishMutation(ctx)
		}
	}
	return nil
}

func (s *Service) SetGoal(ctx context.Context, exercise string, weight, reps float64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.setGoal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if NormalizeExercise(exercise) == "" {
		return nil
	}
	s.state.SetGoal(exercise, weight, reps)
	s.metrics.CounterGoalsSet.Inc()
	return s.finishMutation(ctx)
}

func (s *Service) RemoveGoal(ctx context.Context, exercise string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.removeGoal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if NormalizeExercise(exercise) == "" {
		return nil
	}
	s.state.RemoveGoal(exercise)
	return s.finishMutation(ctx)
}

func (s *Service) SetProfileField(ctx context.Context, field, value string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.setProfileField")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch field {
	case "age":
		s.state.Profile.Age = value
	case "height":
		s.state.Profile.Height = value
	case "weight":
		s.state.Profile.Weight = value
	case "avatar":
		s.state.Profile.Avatar = value
	default:
		return nil
	}
	return s.finishMutation(ctx)
}

func (s *Service) SetAvatar(ctx context.Context, dataURL string) error {
	return s.SetProfileField(ctx, "avatar", dataURL)
}

/* ----------------- derived reads ----------------- */

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() *State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state.Clone()
}

func (s *Service) Streak() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state.Streak
}

// Revision changes with every applied mutation, so read caches can key
// cached derived values on it and never serve stale scores.
func (s *Service) Revision() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.revision
}

// ActiveDayScores is the score vector of the currently selected day.
func (s *Service) ActiveDayScores() map[string]float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return DayScores(s.state, s.state.ActiveDay())
}

// DayScoresFor evaluates one day without touching the active-day
// selection; zero vector for an unknown id.
func (s *Service) DayScoresFor(dayID string) map[string]float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return DayScores(s.state, s.state.DayByID(dayID))
}

func (s *Service) AverageScores() map[string]float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return AverageScores(s.state)
}

func (s *Service) ProfileScores() map[string]float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return ProfileScores(s.state)
}

func (s *Service) OverallGoalAttainment() float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return OverallGoalAttainment(s.state)
}

func (s *Service) History(exercise string) []Attempt {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state.HistoryFor(exercise)
}

func (s *Service) Goals() []NamedGoal {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state.ListGoals()
}

func (s *Service) Goal(exercise string) (Goal, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state.GetGoal(exercise)
}
