package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/render"
	"github.com/rs/zerolog"
)

// executeRecipeConfig mirrors spec.md §4.4: a templated recipe_path and a
// map of templated override values applied to the parent context before
// the sub-recipe runs against it directly (no clone).
type executeRecipeConfig struct {
	RecipePath       string            `json:"recipe_path"`
	ContextOverrides map[string]string `json:"context_overrides"`
}

type executeRecipeStep struct {
	logger zerolog.Logger
	config executeRecipeConfig
}

func newExecuteRecipeStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg executeRecipeConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.RecipePath == "" {
		return nil, errMissingField("recipe_path")
	}
	return &executeRecipeStep{logger: logger, config: cfg}, nil
}

// Execute renders recipe_path and every override value, verifies the
// recipe file exists, applies the overrides to the caller's context, and
// then drives it with a fresh Executor against that same context — writes
// from the sub-recipe are visible to the rest of the parent recipe, per
// spec.md §4.4's explicit "no clone" rationale.
func (s *executeRecipeStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	path, err := renderString(s.config.RecipePath, rc)
	if err != nil {
		return err
	}

	renderedOverrides, err := render.RenderAll(s.config.ContextOverrides, rc)
	if err != nil {
		return &executor.TemplateError{Template: "context_overrides", Err: err}
	}

	resolved, err := resolveRecipePath(path, rc)
	if err != nil {
		return err
	}
	path = resolved

	for k, v := range renderedOverrides {
		rc.Set(k, v)
	}

	s.logger.Debug().Str("recipe_path", path).Msg("executing sub-recipe")
	return executor.New(s.logger).Execute(ctx, path, rc)
}

// resolveRecipePath verifies path exists, falling back to a path relative
// to the calling recipe's directory (tracked on rc by the executor) before
// failing — several original_source execute_recipe.py variants resolve
// sub-recipe paths this way rather than against the process's cwd.
func resolveRecipePath(path string, rc *recipectx.Context) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if dir, ok := executor.RecipeDir(rc); ok {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &executor.RecipeNotFoundError{Path: path}
}
