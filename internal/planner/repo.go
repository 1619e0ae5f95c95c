package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velyko/planner/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
)

// StateKey is the fixed storage key for the whole serialized state blob.
// Kept identical to the web client's local storage key so both read the
// same structure.
const StateKey = "planner_state_v1"

var ErrStateNotFound = errors.New("state not found")

type StateRepo interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// RedisRepo persists the whole state as a single JSON blob under
// StateKey, written on every mutating call.
type RedisRepo struct {
	redisClient *redis.Client
}

func NewRedisRepo(redisClient *redis.Client) *RedisRepo {
	return &RedisRepo{
		redisClient: redisClient,
	}
}

func (r *RedisRepo) Load(ctx context.Context) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cmd := r.redisClient.Get(ctx, StateKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("get state blob: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(cmd.Val()), &state); err != nil {
		return nil, fmt.Errorf("unmarshal state blob: %w", err)
	}

	state.ApplyDefaults()
	return &state, nil
}

func (r *RedisRepo) Save(ctx context.Context, state *State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	stateJson, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state blob: %w", err)
	}

	if err := r.redisClient.Set(ctx, StateKey, stateJson, 0).Err(); err != nil {
		return fmt.Errorf("set state blob: %w", err)
	}
	return nil
}
