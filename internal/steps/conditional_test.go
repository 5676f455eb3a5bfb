package steps_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recipeforge/recipeforge/internal/recipectx"
)

func TestConditionalRunsIfTrueBranchWhenTrue(t *testing.T) {
	registerFn(t, "conditional_test_mark_true", func(ctx context.Context, rc *recipectx.Context) error {
		rc.Set("branch", "true")
		return nil
	})
	registerFn(t, "conditional_test_mark_false", func(ctx context.Context, rc *recipectx.Context) error {
		rc.Set("branch", "false")
		return nil
	})

	step := newStep(t, "conditional", map[string]interface{}{
		"condition": "1 == 1",
		"if_true": map[string]interface{}{
			"steps": []interface{}{map[string]interface{}{"type": "conditional_test_mark_true"}},
		},
		"if_false": map[string]interface{}{
			"steps": []interface{}{map[string]interface{}{"type": "conditional_test_mark_false"}},
		},
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("branch")
	require.True(t, ok)
	require.Equal(t, "true", got)
}

func TestConditionalRunsIfFalseBranchWhenFalse(t *testing.T) {
	registerFn(t, "conditional_test_mark2_true", func(ctx context.Context, rc *recipectx.Context) error {
		rc.Set("branch", "true")
		return nil
	})
	registerFn(t, "conditional_test_mark2_false", func(ctx context.Context, rc *recipectx.Context) error {
		rc.Set("branch", "false")
		return nil
	})

	step := newStep(t, "conditional", map[string]interface{}{
		"condition": "1 == 2",
		"if_true": map[string]interface{}{
			"steps": []interface{}{map[string]interface{}{"type": "conditional_test_mark2_true"}},
		},
		"if_false": map[string]interface{}{
			"steps": []interface{}{map[string]interface{}{"type": "conditional_test_mark2_false"}},
		},
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("branch")
	require.True(t, ok)
	require.Equal(t, "false", got)
}

func TestConditionalMissingBranchIsNoOp(t *testing.T) {
	step := newStep(t, "conditional", map[string]interface{}{
		"condition": "1 == 2",
		"if_true": map[string]interface{}{
			"steps": []interface{}{},
		},
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))
	require.Equal(t, 0, rc.Len())
}

func TestConditionalBranchSharesParentContextNoClone(t *testing.T) {
	registerFn(t, "conditional_test_writer", func(ctx context.Context, rc *recipectx.Context) error {
		v, _ := rc.Get("seen")
		rc.Set("seen", v.(float64)+1)
		return nil
	})

	step := newStep(t, "conditional", map[string]interface{}{
		"condition": "true",
		"if_true": map[string]interface{}{
			"steps": []interface{}{map[string]interface{}{"type": "conditional_test_writer"}},
		},
	})

	rc := recipectx.New()
	rc.Set("seen", 0.0)
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("seen")
	require.True(t, ok)
	require.Equal(t, 1.0, got, "conditional runs its branch against the same context, not a clone")
}

func TestConditionalSyntaxErrorPropagates(t *testing.T) {
	step := newStep(t, "conditional", map[string]interface{}{
		"condition": "not valid syntax (((",
	})

	rc := recipectx.New()
	err := step.Execute(context.Background(), rc)
	require.Error(t, err)
}
