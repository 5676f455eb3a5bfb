// Package executor implements the Recipe loader, validator, and
// sequential step driver (spec.md §4.2).
//
// This is a from-scratch sequential rewrite of the teacher's DAG-based
// internal/workflow/engine.go — this spec's recipes are ordered step
// lists, not depends_on graphs, so the driver loop is far simpler. What
// carries over from the teacher is the shape of the thing: a
// recipe-scoped loop that constructs one step at a time, awaits it, and
// wraps the first failure with the step's index/type before aborting
// (engine.go's executeStep/executeStepOnce pairing), plus the logging
// cadence (a debug summary at start, an info line per completed step, an
// error line with the full cause on failure).
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/registry"
	"github.com/recipeforge/recipeforge/internal/telemetry"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stepTimeoutCtxKey threads the configured step timeout down through nested
// Executors (execute_recipe, conditional branches construct their own
// Executor rather than reusing the caller's) so a sub-recipe's leaf steps
// stay bounded by the same deadline as their caller's.
type stepTimeoutCtxKey struct{}

func withStepTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	if _, ok := ctx.Value(stepTimeoutCtxKey{}).(time.Duration); ok {
		return ctx
	}
	return context.WithValue(ctx, stepTimeoutCtxKey{}, d)
}

func stepTimeoutFromCtx(ctx context.Context) time.Duration {
	d, _ := ctx.Value(stepTimeoutCtxKey{}).(time.Duration)
	return d
}

// recipeDirKey is the context artifact used to remember the directory a
// file-sourced recipe was loaded from, so a nested execute_recipe step can
// resolve a relative recipe_path against the calling recipe's directory
// rather than the process's current working directory (original_source's
// execute_recipe.py variants do this; spec.md is silent on it).
const recipeDirKey = "__recipe_dir"

// Executor loads and drives a recipe. It holds no per-execution state, so
// a single Executor is safe to reuse across concurrent, independent
// Execute calls with distinct Contexts — the reentrancy contract sub-recipe
// execution depends on (spec.md §4.2, §9).
type Executor struct {
	logger      zerolog.Logger
	stepTimeout time.Duration
}

// Option configures an Executor constructed via New.
type Option func(*Executor)

// WithStepTimeout bounds how long each step the Executor drives (composite
// steps included) may run before its context is canceled
// (config.Config.StepTimeout). Zero (the default)
// applies no deadline beyond whatever the caller's ctx already carries.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) { e.stepTimeout = d }
}

// New creates an Executor that logs through logger. Pass zerolog.Nop() for
// a silent executor (used in tests).
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Default is a stateless Executor logging through the global logger,
// convenient for call sites (e.g. the CLI) that don't carry a more
// specific logger.
var Default = New(log.Logger)

// Execute resolves recipeInput to a validated recipe and drives its steps
// in order against rc. The first step failure aborts the recipe
// immediately — steps after the failing one are never constructed.
func (e *Executor) Execute(ctx context.Context, recipeInput interface{}, rc *recipectx.Context) error {
	recipe, err := Load(recipeInput)
	if err != nil {
		return err
	}

	if path, ok := recipeInput.(string); ok {
		if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
			if abs, absErr := filepath.Abs(path); absErr == nil {
				prevDir, hadPrev := rc.Get(recipeDirKey)
				rc.Set(recipeDirKey, filepath.Dir(abs))
				defer func() {
					if hadPrev {
						rc.Set(recipeDirKey, prevDir)
					} else {
						_ = rc.Delete(recipeDirKey)
					}
				}()
			}
		}
	}

	e.logger.Debug().Int("steps", len(recipe.Steps)).Msg("executing recipe")

	ctx = withStepTimeout(ctx, e.stepTimeout)
	timeout := e.stepTimeout
	if timeout <= 0 {
		timeout = stepTimeoutFromCtx(ctx)
	}

	for i, spec := range recipe.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		ctor, ok := registry.Lookup(spec.Type)
		if !ok {
			return &UnknownStepTypeError{Index: i, Type: spec.Type}
		}

		stepLogger := e.logger.With().Int("step_index", i).Str("step_type", spec.Type).Logger()
		step, err := ctor(stepLogger, spec.Config)
		if err != nil {
			return &StepConfigError{Index: i, Type: spec.Type, Err: err}
		}

		stepCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		spanCtx, endSpan := telemetry.StepSpan(stepCtx, i, spec.Type)
		err = step.Execute(spanCtx, rc)
		endSpan(err)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			e.logger.Error().Err(err).Int("step_index", i).Str("step_type", spec.Type).Msg("step failed")
			return &StepRuntimeError{Index: i, Type: spec.Type, Err: err}
		}

		e.logger.Info().Int("step_index", i).Str("step_type", spec.Type).Msg("step completed")
	}

	return nil
}

// Execute is a package-level convenience that drives recipeInput through
// Default. Composite steps that carry their own logger should instead
// construct their own Executor via New so step-local log fields (step
// index, sub-recipe path) are attached consistently.
func Execute(ctx context.Context, recipeInput interface{}, rc *recipectx.Context) error {
	return Default.Execute(ctx, recipeInput, rc)
}

// ExecuteSteps drives an already-validated list of step specs against rc,
// without going through the Load/validate path. Composite steps
// (parallel, loop, conditional branches) use this to run an inline
// `substeps` list that's already a []models.StepSpec rather than a
// recipe_path or raw JSON document.
func (e *Executor) ExecuteSteps(ctx context.Context, steps []models.StepSpec, rc *recipectx.Context) error {
	return e.Execute(ctx, &models.Recipe{Steps: steps}, rc)
}

// RecipeDir returns the directory of the file-sourced recipe currently
// executing against rc, if any. execute_recipe uses this to resolve a
// relative recipe_path against the calling recipe's directory when the
// path doesn't exist as given.
func RecipeDir(rc *recipectx.Context) (string, bool) {
	v, ok := rc.Get(recipeDirKey)
	if !ok {
		return "", false
	}
	dir, ok := v.(string)
	return dir, ok
}

// StepIndexError is a small helper error used by composite steps to
// report which substep index failed inside a fan-out, independent of the
// top-level step index the outer Executor already attaches.
type StepIndexError struct {
	Index int
	Err   error
}

func (e *StepIndexError) Error() string {
	return fmt.Sprintf("substep %d: %v", e.Index, e.Err)
}
func (e *StepIndexError) Unwrap() error { return e.Err }
