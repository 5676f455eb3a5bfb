package steps_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recipeforge/recipeforge/internal/recipectx"
)

func TestLoopOverSequenceAggregatesInOrder(t *testing.T) {
	registerFn(t, "loop_test_double", func(ctx context.Context, rc *recipectx.Context) error {
		n, _ := rc.Get("item")
		rc.Set("item", n.(float64)*2)
		return nil
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":      "numbers",
		"item_key":   "item",
		"result_key": "doubled",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_double"}},
	})

	rc := recipectx.New()
	rc.Set("numbers", []interface{}{1.0, 2.0, 3.0})
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("doubled")
	require.True(t, ok)
	require.Equal(t, []interface{}{2.0, 4.0, 6.0}, got)
}

func TestLoopOverMappingAggregatesByKey(t *testing.T) {
	registerFn(t, "loop_test_upper", func(ctx context.Context, rc *recipectx.Context) error {
		v, _ := rc.Get("item")
		rc.Set("item", v.(string)+"!")
		return nil
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":      "greetings",
		"item_key":   "item",
		"result_key": "shouted",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_upper"}},
	})

	rc := recipectx.New()
	rc.Set("greetings", map[string]interface{}{"a": "hi", "b": "yo"})
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("shouted")
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{"a": "hi!", "b": "yo!"}, got)
}

func TestLoopResolvesDottedItemsPath(t *testing.T) {
	registerFn(t, "loop_test_noop", func(ctx context.Context, rc *recipectx.Context) error {
		return nil
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":      "nested.list",
		"item_key":   "item",
		"result_key": "out",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_noop"}},
	})

	rc := recipectx.New()
	rc.Set("nested", map[string]interface{}{"list": []interface{}{"x", "y"}})
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("out")
	require.True(t, ok)
	require.Equal(t, []interface{}{"x", "y"}, got)
}

func TestLoopFailFastAbortsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	registerFn(t, "loop_test_fail_on_two", func(ctx context.Context, rc *recipectx.Context) error {
		v, _ := rc.Get("item")
		if v.(float64) == 2 {
			return boom
		}
		return nil
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":      "numbers",
		"item_key":   "item",
		"result_key": "out",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_fail_on_two"}},
		"fail_fast":  true,
	})

	rc := recipectx.New()
	rc.Set("numbers", []interface{}{1.0, 2.0, 3.0})
	err := step.Execute(context.Background(), rc)
	require.Error(t, err)
}

func TestLoopFailFastCancelsSiblingsConcurrently(t *testing.T) {
	boom := errors.New("boom")
	var secondCompleted int32
	registerFn(t, "loop_test_fail_fast_concurrent", func(ctx context.Context, rc *recipectx.Context) error {
		v, _ := rc.Get("item")
		if v.(float64) == 1 {
			time.Sleep(10 * time.Millisecond)
			return boom
		}
		select {
		case <-time.After(200 * time.Millisecond):
			atomic.AddInt32(&secondCompleted, 1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":           "numbers",
		"item_key":        "item",
		"result_key":      "out",
		"substeps":        []interface{}{map[string]interface{}{"type": "loop_test_fail_fast_concurrent"}},
		"fail_fast":       true,
		"max_concurrency": 2,
	})

	rc := recipectx.New()
	rc.Set("numbers", []interface{}{1.0, 2.0})
	start := time.Now()
	err := step.Execute(context.Background(), rc)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Less(t, elapsed, 150*time.Millisecond, "loop should fail fast well before the slow iteration's 200ms sleep")
	require.Zero(t, atomic.LoadInt32(&secondCompleted), "the slow iteration must observe cancellation and never complete normally")
}

func TestLoopNonFailFastCollectsErrorsAndResults(t *testing.T) {
	boom := errors.New("boom")
	registerFn(t, "loop_test_fail_odd", func(ctx context.Context, rc *recipectx.Context) error {
		v, _ := rc.Get("item")
		if int(v.(float64))%2 != 0 {
			return boom
		}
		rc.Set("item", v.(float64)*10)
		return nil
	})

	step := newStep(t, "loop", map[string]interface{}{
		"items":      "numbers",
		"item_key":   "item",
		"result_key": "out",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_fail_odd"}},
		"fail_fast":  false,
	})

	rc := recipectx.New()
	rc.Set("numbers", []interface{}{1.0, 2.0, 3.0, 4.0})
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("out")
	require.True(t, ok)
	require.Equal(t, []interface{}{20.0, 40.0}, got)

	errs, ok := rc.Get("out__errors")
	require.True(t, ok)
	require.Len(t, errs, 2)
}

func TestLoopRejectsNonCollectionItems(t *testing.T) {
	step := newStep(t, "loop", map[string]interface{}{
		"items":      "scalar",
		"item_key":   "item",
		"result_key": "out",
		"substeps":   []interface{}{map[string]interface{}{"type": "loop_test_noop"}},
	})

	rc := recipectx.New()
	rc.Set("scalar", 42.0)
	err := step.Execute(context.Background(), rc)
	require.Error(t, err)
}
