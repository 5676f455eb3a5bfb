package steps

import (
	"context"
	"strings"
	"time"

	"github.com/recipeforge/recipeforge/internal/processexec"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// runCommandConfig mirrors the original recipe_executor's run_command step
// (recipe_executor/steps/run_command.py), generalized from Python's
// shell=True single string into an explicit command+args pair so the
// step never needs a host shell to run.
type runCommandConfig struct {
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Cwd            string            `json:"cwd"`
	Env            map[string]string `json:"env"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	ResultKey      string            `json:"result_key"`
}

type runCommandStep struct {
	logger zerolog.Logger
	config runCommandConfig
}

func newRunCommandStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg runCommandConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Command == "" {
		return nil, errMissingField("command")
	}
	if cfg.ResultKey == "" {
		cfg.ResultKey = "command_result"
	}
	return &runCommandStep{logger: logger, config: cfg}, nil
}

// Execute renders command, args, cwd, and env values, runs the process to
// completion (or cancellation/timeout), and stores
// {returncode, output, error} under result_key — the same result shape
// the original Python step wrote into context.
func (s *runCommandStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	command, err := renderString(s.config.Command, rc)
	if err != nil {
		return err
	}

	args := make([]string, len(s.config.Args))
	for i, a := range s.config.Args {
		ra, err := renderString(a, rc)
		if err != nil {
			return err
		}
		args[i] = ra
	}

	cwd, err := renderString(s.config.Cwd, rc)
	if err != nil {
		return err
	}

	env := make(map[string]string, len(s.config.Env))
	for k, v := range s.config.Env {
		rv, err := renderString(v, rc)
		if err != nil {
			return err
		}
		env[k] = rv
	}

	s.logger.Debug().Str("command", command).Strs("args", args).Msg("running command")

	result, err := processexec.Run(ctx, processexec.Request{
		Command: command,
		Args:    args,
		Dir:     cwd,
		Env:     env,
		Timeout: time.Duration(s.config.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	if result.TimedOut {
		s.logger.Warn().Str("command", command).Msg("command timed out")
	}

	rc.Set(s.config.ResultKey, map[string]interface{}{
		"returncode": result.ExitCode,
		"output":     result.Stdout,
		"error":      result.Stderr,
		"timed_out":  result.TimedOut,
	})

	if result.ExitCode != 0 {
		s.logger.Warn().Int("returncode", result.ExitCode).Str("stderr", strings.TrimSpace(result.Stderr)).Msg("command exited non-zero")
	}

	return nil
}
