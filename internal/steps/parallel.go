package steps

import (
	"context"
	"time"

	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/telemetry"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// parallelConfig mirrors spec.md §4.5.
type parallelConfig struct {
	Substeps       []models.StepSpec `json:"substeps"`
	MaxConcurrency int               `json:"max_concurrency"`
	Delay          float64           `json:"delay"`
}

type parallelStep struct {
	logger zerolog.Logger
	config parallelConfig
}

func newParallelStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg parallelConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Substeps) == 0 {
		return nil, errMissingField("substeps")
	}
	return &parallelStep{logger: logger, config: cfg}, nil
}

// Execute fans Substeps out, each against its own clone of rc, honoring
// the effective concurrency cap and inter-launch delay of spec.md §4.5.
// The first substep failure cancels the shared group context — not-yet-
// launched substeps are skipped and in-flight substeps are expected to
// observe cancellation at their own suspension points — and Execute
// returns that failure wrapped with the substep's index.
func (s *parallelStep) Execute(ctx context.Context, rc *recipectx.Context) (execErr error) {
	n := len(s.config.Substeps)
	maxConcurrency := s.config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = n
	}

	s.logger.Info().Int("substeps", n).Int("max_concurrency", maxConcurrency).Msg("starting parallel step")

	ctx, endSpan := telemetry.FanOutSpan(ctx, "parallel", n, maxConcurrency)
	defer func() { endSpan(execErr) }()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(maxConcurrency))

	for i, spec := range s.config.Substeps {
		if gctx.Err() != nil {
			s.logger.Debug().Int("substep", i).Msg("skipping launch after earlier failure")
			break
		}
		if i > 0 && s.config.Delay > 0 {
			select {
			case <-time.After(time.Duration(s.config.Delay * float64(time.Second))):
			case <-gctx.Done():
				break
			}
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		index := i
		substep := spec
		clone := rc.Clone()
		g.Go(func() error {
			defer sem.Release(1)
			s.logger.Debug().Int("substep", index).Str("step_type", substep.Type).Msg("launching substep")
			if err := runSubstep(gctx, s.logger, index, substep, clone); err != nil {
				return &executor.StepIndexError{Index: index, Err: err}
			}
			s.logger.Debug().Int("substep", index).Msg("substep completed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("parallel step failed")
		return err
	}
	s.logger.Info().Msg("parallel step completed")
	return nil
}
