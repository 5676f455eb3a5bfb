package steps

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/telemetry"
	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// loopConfig mirrors spec.md §4.6.
type loopConfig struct {
	Items          string            `json:"items"`
	ItemKey        string            `json:"item_key"`
	Substeps       []models.StepSpec `json:"substeps"`
	ResultKey      string            `json:"result_key"`
	MaxConcurrency int               `json:"max_concurrency"`
	Delay          float64           `json:"delay"`
	FailFast       *bool             `json:"fail_fast"`
}

type loopStep struct {
	logger zerolog.Logger
	config loopConfig
}

func newLoopStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg loopConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Items == "" {
		return nil, errMissingField("items")
	}
	if cfg.ItemKey == "" {
		return nil, errMissingField("item_key")
	}
	if cfg.ResultKey == "" {
		return nil, errMissingField("result_key")
	}
	if len(cfg.Substeps) == 0 {
		return nil, errMissingField("substeps")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	return &loopStep{logger: logger, config: cfg}, nil
}

type loopEntry struct {
	index int    // position in the enumeration order
	key   string // map key, or the decimal index for a sequence
	isSeq bool
	item  interface{}
}

type loopErrorRecord struct {
	KeyOrIndex string `json:"key_or_index"`
	Error      string `json:"error"`
}

// Execute enumerates the collection named by Items, runs Substeps against
// a per-item context clone for each entry (sequentially when
// MaxConcurrency == 1, fanned out up to that cap otherwise), and
// aggregates ItemKey's post-substep value back into ResultKey in input
// order regardless of completion order (spec.md §4.6 point 6).
func (s *loopStep) Execute(ctx context.Context, rc *recipectx.Context) (execErr error) {
	itemsVal, ok := rc.ResolvePath(s.config.Items)
	if !ok {
		return &executor.LoopTypeError{ItemsPath: s.config.Items, Got: nil}
	}

	entries, err := enumerate(itemsVal, s.config.Items)
	if err != nil {
		return err
	}

	failFast := true
	if s.config.FailFast != nil {
		failFast = *s.config.FailFast
	}

	s.logger.Info().Int("items", len(entries)).Bool("fail_fast", failFast).Msg("starting loop step")

	ctx, endSpan := telemetry.FanOutSpan(ctx, "loop", len(entries), s.config.MaxConcurrency)
	defer func() { endSpan(execErr) }()

	results := make([]interface{}, len(entries))
	errs := make([]*loopErrorRecord, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.config.MaxConcurrency))

	for i, entry := range entries {
		if failFast && gctx.Err() != nil {
			s.logger.Debug().Int("item", i).Msg("skipping launch after earlier failure")
			break
		}
		if i > 0 && s.config.Delay > 0 && s.config.MaxConcurrency > 1 {
			select {
			case <-time.After(time.Duration(s.config.Delay * float64(time.Second))):
			case <-gctx.Done():
			}
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		idx := i
		e := entry
		g.Go(func() error {
			defer sem.Release(1)
			itemResult, err := s.runIteration(gctx, idx, e, rc)
			if err != nil {
				errs[idx] = &loopErrorRecord{KeyOrIndex: e.key, Error: err.Error()}
				s.logger.Error().Err(err).Str("key_or_index", e.key).Msg("loop iteration failed")
				if failFast {
					return err
				}
				return nil
			}
			results[idx] = itemResult
			return nil
		})
	}

	runErr := g.Wait()

	if failFast && runErr != nil {
		return runErr
	}

	s.writeAggregate(rc, entries, results, errs)

	s.logger.Info().Int("processed", len(entries)).Msg("loop step completed")
	return nil
}

func (s *loopStep) runIteration(ctx context.Context, index int, e loopEntry, parent *recipectx.Context) (interface{}, error) {
	clone := parent.Clone()
	if e.isSeq {
		clone.Set("__index", e.index)
	} else {
		clone.Set("__key", e.key)
	}
	clone.Set(s.config.ItemKey, e.item)

	for i, spec := range s.config.Substeps {
		if err := runSubstep(ctx, s.logger, i, spec, clone); err != nil {
			return nil, err
		}
	}

	result, _ := clone.Get(s.config.ItemKey)
	return result, nil
}

// writeAggregate writes ResultKey (and, if needed, the `__errors` sibling
// key) back onto the parent context — the loop's only permitted write per
// spec.md §4.6 point 7.
func (s *loopStep) writeAggregate(rc *recipectx.Context, entries []loopEntry, results []interface{}, errs []*loopErrorRecord) {
	isSeq := len(entries) == 0 || entries[0].isSeq

	var errorRecords []loopErrorRecord
	if isSeq {
		seq := make([]interface{}, 0, len(entries))
		for i, e := range entries {
			if errs[i] != nil {
				errorRecords = append(errorRecords, *errs[i])
				continue
			}
			seq = append(seq, results[i])
		}
		rc.Set(s.config.ResultKey, seq)
	} else {
		m := make(map[string]interface{}, len(entries))
		for i, e := range entries {
			if errs[i] != nil {
				errorRecords = append(errorRecords, *errs[i])
				continue
			}
			m[e.key] = results[i]
		}
		rc.Set(s.config.ResultKey, m)
	}

	if len(errorRecords) > 0 {
		rc.Set(s.config.ResultKey+"__errors", errorRecords)
	}
}

// enumerate yields loop entries in the collection's natural iteration
// order: index order for sequences, sorted key order for mappings (Go
// maps have no stable order of their own, so the mapping case sorts keys
// for determinism rather than leaving iteration order unspecified).
func enumerate(v interface{}, path string) ([]loopEntry, error) {
	switch collection := v.(type) {
	case []interface{}:
		entries := make([]loopEntry, len(collection))
		for i, item := range collection {
			entries[i] = loopEntry{index: i, key: fmt.Sprintf("%d", i), isSeq: true, item: item}
		}
		return entries, nil

	case map[string]interface{}:
		keys := make([]string, 0, len(collection))
		for k := range collection {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]loopEntry, len(keys))
		for i, k := range keys {
			entries[i] = loopEntry{index: i, key: k, isSeq: false, item: collection[k]}
		}
		return entries, nil

	default:
		return nil, &executor.LoopTypeError{ItemsPath: path, Got: v}
	}
}
