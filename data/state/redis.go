package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidState = errors.New("state is not valid json")

// RedisState keeps one opaque JSON blob per user under user:<email>.
type RedisState struct {
	redis *redis.Client
}

func NewRedisState(redisClient *redis.Client) *RedisState {
	return &RedisState{redis: redisClient}
}

func stateKey(email string) string {
	return "user:" + email
}

// GetState returns nil when the user has no state.
func (s *RedisState) GetState(ctx context.Context, email string) (state json.RawMessage, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := stateKey(email)

	slog.Debug("GetState start", slog.String("rqID", rqID), slog.String("key", key))
	defer func() {
		if err != nil {
			slog.Error("GetState failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetState completed", slog.String("rqID", rqID))
		}
	}()

	res, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	if !json.Valid(res) {
		slog.Warn("stored state is not valid json", slog.String("rqID", rqID), slog.String("key", key))
		return nil, nil
	}

	return res, nil
}

// SetState replaces the user's state and returns what is stored afterwards.
func (s *RedisState) SetState(ctx context.Context, email string, state json.RawMessage) (stored json.RawMessage, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := stateKey(email)

	slog.Debug("SetState start", slog.String("rqID", rqID), slog.String("key", key))
	defer func() {
		if err != nil && !errors.Is(err, ErrInvalidState) {
			slog.Error("SetState failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetState completed", slog.String("rqID", rqID))
		}
	}()

	if len(state) == 0 || !json.Valid(state) {
		return nil, ErrInvalidState
	}

	if err = s.redis.Set(ctx, key, []byte(state), 0).Err(); err != nil {
		return nil, err
	}

	return s.GetState(ctx, email)
}
