package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/registry"
	"github.com/recipeforge/recipeforge/internal/stepapi"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
)

type fnStep struct {
	fn func(ctx context.Context, rc *recipectx.Context) error
}

func (s fnStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	return s.fn(ctx, rc)
}

func registerTestStep(t *testing.T, name string, fn func(ctx context.Context, rc *recipectx.Context) error) {
	t.Helper()
	registry.TestRegister(t, name, func(logger zerolog.Logger, config map[string]interface{}) (stepapi.Step, error) {
		return fnStep{fn: fn}, nil
	})
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	registerTestStep(t, "exec_test_a", func(ctx context.Context, rc *recipectx.Context) error {
		order = append(order, "a")
		return nil
	})
	registerTestStep(t, "exec_test_b", func(ctx context.Context, rc *recipectx.Context) error {
		order = append(order, "b")
		return nil
	})

	recipe := &models.Recipe{Steps: []models.StepSpec{
		{Type: "exec_test_a"},
		{Type: "exec_test_b"},
	}}

	rc := recipectx.New()
	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	registerTestStep(t, "exec_test_fail", func(ctx context.Context, rc *recipectx.Context) error {
		ran = append(ran, "fail")
		return boom
	})
	registerTestStep(t, "exec_test_never", func(ctx context.Context, rc *recipectx.Context) error {
		ran = append(ran, "never")
		return nil
	})

	recipe := &models.Recipe{Steps: []models.StepSpec{
		{Type: "exec_test_fail"},
		{Type: "exec_test_never"},
	}}

	rc := recipectx.New()
	err := executor.Execute(context.Background(), recipe, rc)
	if err == nil {
		t.Fatal("Execute() error = nil, want step failure")
	}

	var stepErr *executor.StepRuntimeError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Execute() error = %T, want *StepRuntimeError", err)
	}
	if stepErr.Index != 0 || stepErr.Type != "exec_test_fail" {
		t.Fatalf("StepRuntimeError = %+v, want index 0 type exec_test_fail", stepErr)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error does not wrap original cause: %v", err)
	}

	if len(ran) != 1 || ran[0] != "fail" {
		t.Fatalf("ran = %v, want only [fail] — step after failure must not run", ran)
	}
}

func TestExecuteUnknownStepType(t *testing.T) {
	recipe := &models.Recipe{Steps: []models.StepSpec{{Type: "exec_test_does_not_exist"}}}
	rc := recipectx.New()

	err := executor.Execute(context.Background(), recipe, rc)
	var unknownErr *executor.UnknownStepTypeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Execute() error = %v (%T), want *UnknownStepTypeError", err, err)
	}
}

func TestExecuteRejectsUnsupportedInput(t *testing.T) {
	rc := recipectx.New()
	err := executor.Execute(context.Background(), 42, rc)
	var unsupported *executor.UnsupportedInputError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Execute() error = %v (%T), want *UnsupportedInputError", err, err)
	}
}
