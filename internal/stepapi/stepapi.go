// Package stepapi defines the contract every step type obeys and the
// constructor signature the registry dispatches on. It exists as its own
// package (rather than living in internal/steps or internal/registry) so
// that both can depend on the contract without depending on each other.
package stepapi

import (
	"context"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// Step is the contract every registered step type implements: construct
// from (logger, config), then execute against a shared Context. A
// conforming step reads inputs only from its validated config and from the
// supplied Context, and writes outputs only via the Context (or to
// external systems, for I/O steps).
type Step interface {
	Execute(ctx context.Context, rc *recipectx.Context) error
}

// Constructor builds a Step from a logger and a raw config mapping. It
// validates the config synchronously and returns an error (which the
// executor wraps as a StepConfigError) if the config is invalid.
type Constructor func(logger zerolog.Logger, config map[string]interface{}) (Step, error)
