package steps

import (
	"context"

	"github.com/recipeforge/recipeforge/internal/condlang"
	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
)

type conditionalBranch struct {
	Steps []models.StepSpec `json:"steps"`
}

// conditionalConfig mirrors spec.md §4.7.
type conditionalConfig struct {
	Condition string             `json:"condition"`
	IfTrue    *conditionalBranch `json:"if_true"`
	IfFalse   *conditionalBranch `json:"if_false"`
}

type conditionalStep struct {
	logger zerolog.Logger
	config conditionalConfig
}

func newConditionalStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg conditionalConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Condition == "" {
		return nil, errMissingField("condition")
	}
	return &conditionalStep{logger: logger, config: cfg}, nil
}

// Execute renders Condition, evaluates it via internal/condlang, and runs
// the selected branch's steps sequentially against the current context —
// no clone, per spec.md §4.7 point 3. An absent selected branch is a
// no-op.
func (s *conditionalStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	rendered, err := renderString(s.config.Condition, rc)
	if err != nil {
		return err
	}

	result, err := condlang.Eval(rendered, rc)
	if err != nil {
		return &executor.ConditionSyntaxError{Expression: rendered, Err: err}
	}

	s.logger.Debug().Str("condition", rendered).Bool("result", result).Msg("evaluated condition")

	branch := s.config.IfFalse
	if result {
		branch = s.config.IfTrue
	}
	if branch == nil || len(branch.Steps) == 0 {
		return nil
	}

	return executor.New(s.logger).ExecuteSteps(ctx, branch.Steps, rc)
}
