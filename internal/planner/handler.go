package planner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/velyko/planner/internal/middleware"
	"github.com/velyko/planner/internal/telemetry/metrics"
	"github.com/velyko/planner/pkg"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	scoresCacheSize          = 512 * 1024
	scoresCacheTTLSeconds    = 60
	avgScoresCacheKeyPrefix  = "scores-avg::"
	profScoresCacheKeyPrefix = "scores-profile::"
)

type Handler struct {
	service *Service
	metrics *metrics.Manager
	// cache for the multi-day score aggregations, keyed on the state
	// revision so a mutation can never serve stale values
	scoresCache *freecache.Cache
}

func NewHandler(service *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:     service,
		metrics:     metricsManager,
		scoresCache: freecache.NewCache(scoresCacheSize),
	}
}

func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	mutationsAllowedPerMin int,
) {
	readsRouter := router.PathPrefix("/planner").Subrouter()
	readsRouter.HandleFunc("/state", handler.handleGetState).Methods("GET", "OPTIONS").Name("get-state")
	readsRouter.HandleFunc("/streak", handler.handleGetStreak).Methods("GET", "OPTIONS").Name("get-streak")
	readsRouter.HandleFunc("/scores/day", handler.handleDayScores).Methods("GET", "OPTIONS").Name("day-scores")
	readsRouter.HandleFunc("/scores/average", handler.handleAverageScores).Methods("GET", "OPTIONS").Name("average-scores")
	readsRouter.HandleFunc("/scores/profile", handler.handleProfileScores).Methods("GET", "OPTIONS").Name("profile-scores")
	readsRouter.HandleFunc("/scores/attainment", handler.handleGoalAttainment).Methods("GET", "OPTIONS").Name("goal-attainment")
	readsRouter.HandleFunc("/history/{exercise}", handler.handleHistory).Methods("GET", "OPTIONS").Name("exercise-history")
	readsRouter.HandleFunc("/goals", handler.handleListGoals).Methods("GET", "OPTIONS").Name("list-goals")
	readsRouter.HandleFunc("/goals/{exercise}", handler.handleGetGoal).Methods("GET", "OPTIONS").Name("get-goal")

	mutationsRouter := router.PathPrefix("/planner").Subrouter()
	mutationsRouter.HandleFunc("/days", handler.handleAddDay).Methods("POST", "OPTIONS").Name("new-day")
	mutationsRouter.HandleFunc("/days/active/reset", handler.handleResetActiveDay).Methods("POST", "OPTIONS").Name("reset-day")
	mutationsRouter.HandleFunc("/days/active/{id}", handler.handleSetActiveDay).Methods("POST", "OPTIONS").Name("set-active-day")
	mutationsRouter.HandleFunc("/days/move/{delta}", handler.handleMoveActiveDay).Methods("POST", "OPTIONS").Name("move-active-day")
	mutationsRouter.HandleFunc("/filter/{filter}", handler.handleSetTaskFilter).Methods("POST", "OPTIONS").Name("set-task-filter")
	mutationsRouter.HandleFunc("/tasks", handler.handleAddTask).Methods("POST", "OPTIONS").Name("new-task")
	mutationsRouter.HandleFunc("/tasks/{id}/toggle", handler.handleToggleTask).Methods("POST", "OPTIONS").Name("toggle-task")
	mutationsRouter.HandleFunc("/tasks/{id}", handler.handleDeleteTask).Methods("DELETE", "OPTIONS").Name("remove-task")
	mutationsRouter.HandleFunc("/goals", handler.handleSetGoal).Methods("PUT", "OPTIONS").Name("set-goal")
	mutationsRouter.HandleFunc("/goals/{exercise}", handler.handleRemoveGoal).Methods("DELETE", "OPTIONS").Name("remove-goal")
	mutationsRouter.HandleFunc("/profile", handler.handleSetProfile).Methods("PUT", "OPTIONS").Name("set-profile")
	mutationsRouter.HandleFunc("/profile/avatar", handler.handleSetAvatar).Methods("PUT", "OPTIONS").Name("set-avatar")

	if rateLimiter != nil {
		mutationsRouter.Use(middleware.RateLimit(
			rateLimiter, "planner-mutations", mutationsAllowedPerMin, handler.metrics,
		))
	}
}

func (handler *Handler) handleAddDay(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	day, err := handler.service.AddDay(r.Context())
	if err != nil {
		log.Errorf("add day: %s", err)
		http.Error(w, "error, failed to add day", http.StatusInternalServerError)
		return
	}

	writeJSON(w, day)
}

func (handler *Handler) handleSetActiveDay(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	dayID := vars["id"]
	if dayID == "" {
		http.Error(w, "error, day id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.SetActiveDay(r.Context(), dayID); err != nil {
		log.Errorf("set active day %s: %s", dayID, err)
		http.Error(w, "error, failed to set active day", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("active:%s", dayID))
}

func (handler *Handler) handleMoveActiveDay(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	delta, err := strconv.Atoi(vars["delta"])
	if err != nil {
		http.Error(w, "error, delta NaN", http.StatusBadRequest)
		return
	}

	if err := handler.service.MoveActiveDay(r.Context(), delta); err != nil {
		log.Errorf("move active day by %d: %s", delta, err)
		http.Error(w, "error, failed to move active day", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("moved:%d", delta))
}

func (handler *Handler) handleResetActiveDay(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := handler.service.ResetActiveDay(r.Context()); err != nil {
		log.Errorf("reset active day: %s", err)
		http.Error(w, "error, failed to reset day", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", "reset")
}

func (handler *Handler) handleSetTaskFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	filter := vars["filter"]
	if filter == "" {
		http.Error(w, "error, filter empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.SetTaskFilter(r.Context(), filter); err != nil {
		log.Errorf("set task filter %s: %s", filter, err)
		http.Error(w, "error, failed to set filter", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("filter:%s", filter))
}

// handleAddTask pre-validates the required fields, the core never
// rejects anything itself.
func (handler *Handler) handleAddTask(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("add new task failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	payload := TaskPayload{
		Category: Category(r.Form.Get("category")),
		Title:    r.Form.Get("title"),
		Exercise: r.Form.Get("exercise"),
	}
	if payload.Category == "" {
		http.Error(w, "error, category empty", http.StatusBadRequest)
		return
	}

	if payload.Category == CategoryMuscles {
		if strings.TrimSpace(payload.Exercise) == "" {
			http.Error(w, "error, exercise empty", http.StatusBadRequest)
			return
		}
		sets, err := strconv.Atoi(r.Form.Get("sets"))
		if err != nil || sets < 0 {
			http.Error(w, "error, sets invalid", http.StatusBadRequest)
			return
		}
		reps, err := strconv.Atoi(r.Form.Get("reps"))
		if err != nil || reps <= 0 {
			http.Error(w, "error, reps invalid", http.StatusBadRequest)
			return
		}
		weight, err := strconv.ParseFloat(r.Form.Get("weight"), 64)
		if err != nil || weight <= 0 {
			http.Error(w, "error, weight invalid", http.StatusBadRequest)
			return
		}
		payload.Sets = sets
		payload.Reps = reps
		payload.Weight = weight
	} else if strings.TrimSpace(payload.Title) == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}

	task, err := handler.service.AddTask(r.Context(), payload)
	if err != nil {
		log.Errorf("add task [%s]: %s", payload.Category, err)
		http.Error(w, "error, failed to add task", http.StatusInternalServerError)
		return
	}

	log.Tracef("new task added: [%s] %s: %s", task.Category, task.Title, task.ID)
	writeJSON(w, task)
}

func (handler *Handler) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	taskID := vars["id"]
	if taskID == "" {
		http.Error(w, "error, task id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.ToggleTask(r.Context(), taskID); err != nil {
		log.Errorf("toggle task %s: %s", taskID, err)
		http.Error(w, "error, failed to toggle task", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("toggled:%s", taskID))
}

func (handler *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	taskID := vars["id"]
	if taskID == "" {
		http.Error(w, "error, task id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.DeleteTask(r.Context(), taskID); err != nil {
		log.Errorf("delete task %s: %s", taskID, err)
		http.Error(w, "error, failed to delete task", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("deleted:%s", taskID))
}

func (handler *Handler) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("set goal failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	exercise := r.Form.Get("exercise")
	if strings.TrimSpace(exercise) == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}
	weight, err := strconv.ParseFloat(r.Form.Get("weight"), 64)
	if err != nil || weight <= 0 {
		http.Error(w, "error, weight invalid", http.StatusBadRequest)
		return
	}
	reps, err := strconv.ParseFloat(r.Form.Get("reps"), 64)
	if err != nil || reps <= 0 {
		http.Error(w, "error, reps invalid", http.StatusBadRequest)
		return
	}

	if err := handler.service.SetGoal(r.Context(), exercise, weight, reps); err != nil {
		log.Errorf("set goal [%s]: %s", exercise, err)
		http.Error(w, "error, failed to set goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("goal:%s", NormalizeExercise(exercise)))
}

func (handler *Handler) handleRemoveGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	exercise := vars["exercise"]
	if exercise == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.RemoveGoal(r.Context(), exercise); err != nil {
		log.Errorf("remove goal [%s]: %s", exercise, err)
		http.Error(w, "error, failed to remove goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("removed:%s", NormalizeExercise(exercise)))
}

func (handler *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := handler.service.Goals()

	goalsJson, err := json.Marshal(goals)
	if err != nil {
		log.Errorf("marshal goals error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resJson := fmt.Sprintf(`{"goals": %s, "total": %d}`, goalsJson, len(goals))
	pkg.WriteResponseBytes(w, "application/json", []byte(resJson))
}

func (handler *Handler) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	exercise := vars["exercise"]

	goal, ok := handler.service.Goal(exercise)
	if !ok {
		http.Error(w, "goal not found", http.StatusNotFound)
		return
	}

	writeJSON(w, goal)
}

func (handler *Handler) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("set profile failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	for _, field := range []string{"age", "height", "weight"} {
		if !r.Form.Has(field) {
			continue
		}
		if err := handler.service.SetProfileField(r.Context(), field, r.Form.Get(field)); err != nil {
			log.Errorf("set profile field %s: %s", field, err)
			http.Error(w, "error, failed to set profile", http.StatusInternalServerError)
			return
		}
	}

	pkg.WriteResponse(w, "", "profile updated")
}

func (handler *Handler) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("set avatar failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	// the avatar is an opaque data URL, passthrough only
	if err := handler.service.SetAvatar(r.Context(), r.Form.Get("avatar")); err != nil {
		log.Errorf("set avatar: %s", err)
		http.Error(w, "error, failed to set avatar", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", "avatar updated")
}

func (handler *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, handler.service.Snapshot())
}

func (handler *Handler) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	pkg.WriteResponseBytes(
		w, "application/json",
		[]byte(fmt.Sprintf(`{"streak": %d}`, handler.service.Streak())),
	)
}

func (handler *Handler) handleDayScores(w http.ResponseWriter, r *http.Request) {
	dayID := r.URL.Query().Get("dayId")

	var scores map[string]float64
	if dayID == "" {
		scores = handler.service.ActiveDayScores()
	} else {
		scores = handler.service.DayScoresFor(dayID)
	}

	writeJSON(w, scores)
}

func (handler *Handler) handleAverageScores(w http.ResponseWriter, r *http.Request) {
	handler.writeCachedScores(w, avgScoresCacheKeyPrefix, handler.service.AverageScores)
}

func (handler *Handler) handleProfileScores(w http.ResponseWriter, r *http.Request) {
	handler.writeCachedScores(w, profScoresCacheKeyPrefix, handler.service.ProfileScores)
}

// writeCachedScores serves the multi-day aggregations from the cache
// when the state revision has not moved since they were computed.
func (handler *Handler) writeCachedScores(
	w http.ResponseWriter,
	keyPrefix string,
	compute func() map[string]float64,
) {
	cacheKey := []byte(fmt.Sprintf("%s%d", keyPrefix, handler.service.Revision()))
	if cached, err := handler.scoresCache.Get(cacheKey); err == nil {
		pkg.WriteResponseBytes(w, "application/json", cached)
		return
	}

	scoresJson, err := json.Marshal(compute())
	if err != nil {
		log.Errorf("marshal scores error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.scoresCache.Set(cacheKey, scoresJson, scoresCacheTTLSeconds); err != nil {
		log.Tracef("cache scores: %s", err)
	}

	pkg.WriteResponseBytes(w, "application/json", scoresJson)
}

func (handler *Handler) handleGoalAttainment(w http.ResponseWriter, r *http.Request) {
	pkg.WriteResponseBytes(
		w, "application/json",
		[]byte(fmt.Sprintf(`{"attainment": %v}`, handler.service.OverallGoalAttainment())),
	)
}

func (handler *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	exercise := vars["exercise"]

	attempts := handler.service.History(exercise)

	attemptsJson, err := json.Marshal(attempts)
	if err != nil {
		log.Errorf("marshal history error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resJson := fmt.Sprintf(`{"attempts": %s, "total": %d}`, attemptsJson, len(attempts))
	pkg.WriteResponseBytes(w, "application/json", []byte(resJson))
}

func writeJSON(w http.ResponseWriter, payload any) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, "application/json", payloadJson)
}
