package steps

import (
	"context"

	"github.com/recipeforge/recipeforge/internal/llmclient"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// llmGenerateConfig mirrors the original recipe_executor's
// LLMGenerateConfig (recipe_executor/steps/llm_generate.py): prompt,
// model, and the context key to store the response under.
type llmGenerateConfig struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	OutputKey string `json:"output_key"`
}

type llmGenerateStep struct {
	logger zerolog.Logger
	config llmGenerateConfig
	client *llmclient.Client
}

func newLLMGenerateStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg llmGenerateConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Prompt == "" {
		return nil, errMissingField("prompt")
	}
	if cfg.Model == "" {
		return nil, errMissingField("model")
	}
	if cfg.OutputKey == "" {
		return nil, errMissingField("output_key")
	}
	return &llmGenerateStep{logger: logger, config: cfg, client: llmclient.New(nil)}, nil
}

// Execute renders prompt/model/output_key, calls the LLM, and stores the
// response under output_key — the same render → call → store sequence as
// the original Python step, minus output_type structuring (this
// implementation always stores the raw completion text; a later step can
// parse it with whatever shape the recipe needs).
func (s *llmGenerateStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	prompt, err := renderString(s.config.Prompt, rc)
	if err != nil {
		return err
	}
	model, err := renderString(s.config.Model, rc)
	if err != nil {
		return err
	}
	outputKey, err := renderString(s.config.OutputKey, rc)
	if err != nil {
		return err
	}

	s.logger.Debug().Str("model", model).Int("prompt_len", len(prompt)).Msg("calling llm")

	response, err := s.client.Generate(ctx, llmclient.Request{Model: model, Prompt: prompt})
	if err != nil {
		s.logger.Error().Err(err).Str("model", model).Msg("llm call failed")
		return err
	}

	rc.Set(outputKey, response)
	return nil
}
