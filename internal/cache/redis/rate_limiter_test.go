package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// scriptRecorder satisfies redis.Scripter and captures the arguments of each
// script invocation, answering every call with a fixed {allowed, remaining}.
type scriptRecorder struct {
	calls [][]interface{}
}

func (s *scriptRecorder) record(args []interface{}) *redis.Cmd {
	s.calls = append(s.calls, args)
	return redis.NewCmdResult([]interface{}{int64(1), int64(4)}, nil)
}

func (s *scriptRecorder) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.record(args)
}

func (s *scriptRecorder) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return s.record(args)
}

func (s *scriptRecorder) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.record(args)
}

func (s *scriptRecorder) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return s.record(args)
}

func (s *scriptRecorder) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (s *scriptRecorder) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRateLimiterUsesUniqueMembers(t *testing.T) {
	rec := &scriptRecorder{}
	rl := &RateLimiter{
		rdb:           rec,
		slidingWindow: redis.NewScript(slidingWindowLua),
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "api:10.0.0.1", 5, time.Second)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	require.Len(t, rec.calls, 3)
	seen := make(map[string]bool)
	for _, args := range rec.calls {
		require.Len(t, args, 4)
		member, ok := args[3].(string)
		require.True(t, ok)
		_, err := uuid.Parse(member)
		require.NoError(t, err)
		// Requests landing in the same microsecond still count separately.
		require.False(t, seen[member])
		seen[member] = true
	}
}
