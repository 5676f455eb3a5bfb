package steps_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/registry"
	"github.com/recipeforge/recipeforge/internal/stepapi"
)

type fnStep struct {
	fn func(ctx context.Context, rc *recipectx.Context) error
}

func (s fnStep) Execute(ctx context.Context, rc *recipectx.Context) error { return s.fn(ctx, rc) }

func registerFn(t *testing.T, name string, fn func(ctx context.Context, rc *recipectx.Context) error) {
	t.Helper()
	registry.TestRegister(t, name, func(zerolog.Logger, map[string]interface{}) (stepapi.Step, error) {
		return fnStep{fn: fn}, nil
	})
}

func TestParallelRunsAllSubstepsConcurrently(t *testing.T) {
	var inFlight, maxInFlight int32
	registerFn(t, "parallel_test_track", func(ctx context.Context, rc *recipectx.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	step := newStep(t, "parallel", map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{"type": "parallel_test_track"},
			map[string]interface{}{"type": "parallel_test_track"},
			map[string]interface{}{"type": "parallel_test_track"},
		},
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))
	require.EqualValues(t, 3, atomic.LoadInt32(&maxInFlight), "all three substeps should run concurrently with no max_concurrency set")
}

func TestParallelFailFastCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	var secondCompleted int32
	registerFn(t, "parallel_test_fail", func(ctx context.Context, rc *recipectx.Context) error {
		time.Sleep(10 * time.Millisecond)
		return boom
	})
	registerFn(t, "parallel_test_slow", func(ctx context.Context, rc *recipectx.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			atomic.AddInt32(&secondCompleted, 1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	step := newStep(t, "parallel", map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{"type": "parallel_test_fail"},
			map[string]interface{}{"type": "parallel_test_slow"},
		},
	})

	rc := recipectx.New()
	start := time.Now()
	err := step.Execute(context.Background(), rc)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Less(t, elapsed, 150*time.Millisecond, "parallel should fail fast well before the slow substep's 200ms sleep")
	require.Zero(t, atomic.LoadInt32(&secondCompleted), "the slow substep must observe cancellation and never complete normally")
}

func TestParallelRespectsMaxConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	registerFn(t, "parallel_test_bounded", func(ctx context.Context, rc *recipectx.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	substeps := make([]interface{}, 6)
	for i := range substeps {
		substeps[i] = map[string]interface{}{"type": "parallel_test_bounded"}
	}
	step := newStep(t, "parallel", map[string]interface{}{
		"substeps":        substeps,
		"max_concurrency": 2,
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))
	require.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestParallelSubstepsDoNotLeakIntoParentContext(t *testing.T) {
	registerFn(t, "parallel_test_writer", func(ctx context.Context, rc *recipectx.Context) error {
		rc.Set("leaked", true)
		return nil
	})

	step := newStep(t, "parallel", map[string]interface{}{
		"substeps": []interface{}{map[string]interface{}{"type": "parallel_test_writer"}},
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))
	_, ok := rc.Get("leaked")
	require.False(t, ok, "parallel substeps run against a clone; writes must not reach the parent context")
}
