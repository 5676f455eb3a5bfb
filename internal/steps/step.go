// Package steps implements the built-in step types: the composite
// control-flow steps (execute_recipe, parallel, loop, conditional) and the
// leaf steps (read_files, write_files, llm_generate, mcp, run_command).
// Each step type's constructor decodes and validates its config up front,
// then Execute does nothing but read from config/context and write to
// context (or an external system, for the leaf I/O steps) — the same
// "validate once, run many times" split the teacher's BaseStep-equivalent
// driver/config-struct pairing uses for every provider driver.
package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/registry"
	"github.com/recipeforge/recipeforge/internal/render"
	"github.com/recipeforge/recipeforge/internal/stepapi"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
)

// Step is a local alias for stepapi.Step so step implementation files in
// this package don't each need their own import of internal/stepapi.
type Step = stepapi.Step

// errMissingField reports a step config missing a value spec.md requires.
func errMissingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}

// decodeConfig re-marshals a raw step config mapping into a typed struct
// via encoding/json, the same "decode once at construction" approach the
// teacher's provider drivers use for their own config structs. It is
// stricter than a direct type assertion: a config with a field of the
// wrong JSON type fails here rather than panicking inside Execute.
func decodeConfig(raw map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal step config: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode step config: %w", err)
	}
	return nil
}

// decodeStepSpecs decodes a raw `substeps` field (present on parallel,
// loop, and as if_true/if_false.steps on conditional) into a typed step
// spec list.
func decodeStepSpecs(raw interface{}) ([]models.StepSpec, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal substeps: %w", err)
	}
	var specs []models.StepSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("decode substeps: %w", err)
	}
	return specs, nil
}

// runSubstep constructs and executes one substep of a parallel/loop fan-out
// against its own (already cloned) context — the same lookup/construct/
// execute sequence the top-level Executor uses, duplicated here because a
// substep's failure must be reported with its fan-out-local index rather
// than the top-level recipe's step index that executor.Executor attaches.
func runSubstep(ctx context.Context, logger zerolog.Logger, index int, spec models.StepSpec, rc *recipectx.Context) error {
	ctor, ok := registry.Lookup(spec.Type)
	if !ok {
		return &executor.UnknownStepTypeError{Index: index, Type: spec.Type}
	}
	step, err := ctor(logger, spec.Config)
	if err != nil {
		return &executor.StepConfigError{Index: index, Type: spec.Type, Err: err}
	}
	if err := step.Execute(ctx, rc); err != nil {
		return &executor.StepRuntimeError{Index: index, Type: spec.Type, Err: err}
	}
	return nil
}

// renderString is the one-line render+wrap every step uses for a single
// templated string field.
func renderString(text string, rc *recipectx.Context) (string, error) {
	out, err := render.Render(text, rc)
	if err != nil {
		return "", &executor.TemplateError{Template: text, Err: err}
	}
	return out, nil
}
