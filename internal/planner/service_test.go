package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velyko/planner/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func newTestService(t *testing.T) (*Service, *repoMock) {
	t.Helper()
	repo := NewMockStateRepo()
	service, err := NewService(context.Background(), repo, metrics.NewTestManager())
	require.NoError(t, err)
	return service, repo
}

func TestNewService_FreshState(t *testing.T) {
	service, repo := newTestService(t)

	state := service.Snapshot()
	require.Len(t, state.Days, 1)
	assert.Equal(t, state.Days[0].ID, state.ActiveDayID)
	assert.Equal(t, "all", state.TaskFilter)
	assert.Zero(t, service.Streak())
	// initial state was persisted right away
	assert.Equal(t, 1, repo.saveCalls)
}

func TestNewService_LoadsStoredState(t *testing.T) {
	repo := NewMockStateRepo()
	stored := NewDefaultState(time.Now())
	stored.SetGoal("squat", 100, 5)
	require.NoError(t, repo.Save(context.Background(), stored))

	service, err := NewService(context.Background(), repo, metrics.NewTestManager())
	require.NoError(t, err)

	goal, ok := service.Goal("squat")
	require.True(t, ok)
	assert.Equal(t, Goal{Weight: 100, Reps: 5}, goal)
}

func TestNewService_CorruptStateStartsFresh(t *testing.T) {
	repo := NewMockStateRepo()
	repo.loadErr = errors.New("unmarshal state blob: unexpected end of JSON input")

	service, err := NewService(context.Background(), repo, metrics.NewTestManager())
	require.NoError(t, err)
	require.Len(t, service.Snapshot().Days, 1)
}

func TestService_AddDay(t *testing.T) {
	service, repo := newTestService(t)
	savesBefore := repo.saveCalls

	day, err := service.AddDay(context.Background())
	require.NoError(t, err)

	state := service.Snapshot()
	require.Len(t, state.Days, 2)
	assert.Equal(t, day.ID, state.ActiveDayID, "new day becomes active")
	assert.Equal(t, 1, day.WeekdayIndex, "weekday index wraps from the last day")
	assert.Equal(t, savesBefore+1, repo.saveCalls, "every mutation persists")

	// weekday index wraps after a full week
	for i := 0; i < 6; i++ {
		day, err = service.AddDay(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, day.WeekdayIndex)
}

func TestService_SetActiveDay(t *testing.T) {
	service, repo := newTestService(t)
	firstDayID := service.Snapshot().Days[0].ID

	_, err := service.AddDay(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.SetActiveDay(context.Background(), firstDayID))
	assert.Equal(t, firstDayID, service.Snapshot().ActiveDayID)

	// unknown day id is a silent no-op, nothing saved
	savesBefore := repo.saveCalls
	require.NoError(t, service.SetActiveDay(context.Background(), "no-such-day"))
	assert.Equal(t, firstDayID, service.Snapshot().ActiveDayID)
	assert.Equal(t, savesBefore, repo.saveCalls)
}

func TestService_MoveActiveDay(t *testing.T) {
	service, repo := newTestService(t)
	firstDayID := service.Snapshot().Days[0].ID

	secondDay, err := service.AddDay(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.MoveActiveDay(context.Background(), -1))
	assert.Equal(t, firstDayID, service.Snapshot().ActiveDayID)

	require.NoError(t, service.MoveActiveDay(context.Background(), 1))
	assert.Equal(t, secondDay.ID, service.Snapshot().ActiveDayID)

	// out of range moves are silent no-ops
	savesBefore := repo.saveCalls
	require.NoError(t, service.MoveActiveDay(context.Background(), 5))
	require.NoError(t, service.MoveActiveDay(context.Background(), -5))
	assert.Equal(t, secondDay.ID, service.Snapshot().ActiveDayID)
	assert.Equal(t, savesBefore, repo.saveCalls)
}

func TestService_AddToggleDeleteTask(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	task, err := service.AddTask(ctx, TaskPayload{
		Category: CategoryBrains,
		Title:    gofakeit.BookTitle(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	assert.Equal(t, TaskTypeSimple, task.Type)
	assert.False(t, task.Done)

	require.NoError(t, service.ToggleTask(ctx, task.ID))
	state := service.Snapshot()
	require.Len(t, state.ActiveDay().Tasks, 1)
	assert.True(t, state.ActiveDay().Tasks[0].Done)

	require.NoError(t, service.ToggleTask(ctx, task.ID))
	assert.False(t, service.Snapshot().ActiveDay().Tasks[0].Done)

	require.NoError(t, service.DeleteTask(ctx, task.ID))
	assert.Empty(t, service.Snapshot().ActiveDay().Tasks)

	// toggling or deleting an unknown task is a silent no-op
	require.NoError(t, service.ToggleTask(ctx, "no-such-task"))
	require.NoError(t, service.DeleteTask(ctx, "no-such-task"))
}

func TestService_AddStrengthTask(t *testing.T) {
	service, _ := newTestService(t)

	task, err := service.AddTask(context.Background(), TaskPayload{
		Category: CategoryMuscles,
		Exercise: "Squat",
		Sets:     3,
		Reps:     5,
		Weight:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeStrength, task.Type)
	assert.Equal(t, "Squat", task.Exercise)
	assert.Equal(t, "Squat", task.Title)
	assert.Equal(t, 100.0, task.Weight)
}

func TestService_ResetActiveDay(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.AddTask(ctx, TaskPayload{
			Category: CategoryEndurance,
			Title:    gofakeit.HipsterWord(),
		})
		require.NoError(t, err)
	}
	require.Len(t, service.Snapshot().ActiveDay().Tasks, 3)

	require.NoError(t, service.ResetActiveDay(ctx))
	assert.Empty(t, service.Snapshot().ActiveDay().Tasks)
}

func TestService_SetTaskFilter(t *testing.T) {
	service, _ := newTestService(t)

	require.NoError(t, service.SetTaskFilter(context.Background(), "pending"))
	assert.Equal(t, "pending", service.Snapshot().TaskFilter)
}

func TestService_StreakRefreshedAfterEveryMutation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	task, err := service.AddTask(ctx, TaskPayload{Category: CategoryMental, Title: "journal"})
	require.NoError(t, err)
	assert.Zero(t, service.Streak(), "pending task, day not completed")

	require.NoError(t, service.ToggleTask(ctx, task.ID))
	assert.Equal(t, 1, service.Streak(), "all tasks done completes the day")

	require.NoError(t, service.ToggleTask(ctx, task.ID))
	assert.Zero(t, service.Streak(), "undoing the task breaks the day again")

	require.NoError(t, service.DeleteTask(ctx, task.ID))
	assert.Zero(t, service.Streak(), "empty day is never completed")
}

func TestService_StreakAcrossDays(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// drive the injected clock one calendar day per planner day, ahead of
	// the fresh-state day so the injected days stay the most recent
	current := time.Now().AddDate(0, 0, 10)
	service.TimeNowFunc = func() time.Time { return current }

	completeToday := func() {
		task, err := service.AddTask(ctx, TaskPayload{Category: CategoryMental, Title: "journal"})
		require.NoError(t, err)
		require.NoError(t, service.ToggleTask(ctx, task.ID))
	}

	// the fresh-state day carries the real creation time, replace it with
	// a day on the injected clock
	_, err := service.AddDay(ctx)
	require.NoError(t, err)
	completeToday()

	// state still holds the original empty day in the past, it does not
	// touch the walk from the most recent day
	assert.Equal(t, 1, service.Streak())

	current = current.AddDate(0, 0, 1)
	_, err = service.AddDay(ctx)
	require.NoError(t, err)
	completeToday()
	assert.Equal(t, 2, service.Streak())

	// a gap breaks the run
	current = current.AddDate(0, 0, 3)
	_, err = service.AddDay(ctx)
	require.NoError(t, err)
	completeToday()
	assert.Equal(t, 1, service.Streak())
}

func TestService_GoalsAndAttainment(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.SetGoal(ctx, "Squat", 120, 5))
	goals := service.Goals()
	require.Len(t, goals, 1)
	assert.Equal(t, "squat", goals[0].Exercise)

	_, err := service.AddTask(ctx, TaskPayload{
		Category: CategoryMuscles,
		Exercise: "squat",
		Sets:     3,
		Reps:     5,
		Weight:   100,
	})
	require.NoError(t, err)
	taskID := service.Snapshot().ActiveDay().Tasks[0].ID
	require.NoError(t, service.ToggleTask(ctx, taskID))

	expected := EstimateOneRepMax(100, 5) / EstimateOneRepMax(120, 5)
	assert.InDelta(t, expected, service.OverallGoalAttainment(), 1e-9)

	scores := service.ActiveDayScores()
	assert.InDelta(t, expected, scores["muscles"], 1e-9)

	require.NoError(t, service.RemoveGoal(ctx, "squat"))
	assert.Empty(t, service.Goals())
	assert.Zero(t, service.OverallGoalAttainment())
}

func TestService_RevisionMovesOnMutation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	revBefore := service.Revision()
	_, err := service.AddDay(ctx)
	require.NoError(t, err)
	assert.Greater(t, service.Revision(), revBefore)

	// reads never move the revision
	revBefore = service.Revision()
	_ = service.AverageScores()
	_ = service.ProfileScores()
	assert.Equal(t, revBefore, service.Revision())

	// silent no-ops do not move it either
	require.NoError(t, service.SetActiveDay(ctx, "no-such-day"))
	assert.Equal(t, revBefore, service.Revision())
}

func TestService_SetProfile(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.SetProfileField(ctx, "age", "33"))
	require.NoError(t, service.SetProfileField(ctx, "height", "184"))
	require.NoError(t, service.SetProfileField(ctx, "weight", "82.5"))
	require.NoError(t, service.SetAvatar(ctx, "data:image/png;base64,aGVsbG8="))

	profile := service.Snapshot().Profile
	assert.Equal(t, "33", profile.Age)
	assert.Equal(t, "184", profile.Height)
	assert.Equal(t, "82.5", profile.Weight)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", profile.Avatar)

	// unknown field is a silent no-op
	savesBefore := repo.saveCalls
	require.NoError(t, service.SetProfileField(ctx, "shoe-size", "44"))
	assert.Equal(t, savesBefore, repo.saveCalls)
}

func TestService_SaveErrorPropagates(t *testing.T) {
	service, repo := newTestService(t)
	repo.saveErr = errors.New("connection refused")

	_, err := service.AddDay(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "save state")
}

func TestService_SnapshotIsDetached(t *testing.T) {
	service, _ := newTestService(t)

	snapshot := service.Snapshot()
	snapshot.Days[0].Tasks = append(snapshot.Days[0].Tasks, NewSimpleTask(CategoryBrains, "mutated", time.Now()))
	snapshot.Goals.Muscles["squat"] = Goal{Weight: 1, Reps: 1}

	assert.Empty(t, service.Snapshot().ActiveDay().Tasks)
	assert.Empty(t, service.Goals())
}
