package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/recipeforge/recipeforge/internal/config"
	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	_ "github.com/recipeforge/recipeforge/internal/steps" // register built-in step types
	"github.com/recipeforge/recipeforge/internal/telemetry"
)

// NewRunCommand returns `recipeforge run <recipe_path>`.
func NewRunCommand() *cobra.Command {
	var logDir string
	var contextSeeds []string

	cmd := &cobra.Command{
		Use:   "run <recipe_path>",
		Short: "Execute a recipe to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if logDir == "" {
				logDir = cfg.LogDir
			}

			logger, closeLog, err := buildFileLogger(logDir, "run")
			if err != nil {
				return fmt.Errorf("set up log directory: %w", err)
			}
			defer closeLog()

			shutdown, err := telemetry.Init(cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer shutdown(context.Background())

			seeds, err := parseContextSeeds(contextSeeds)
			if err != nil {
				return err
			}

			rc := recipectx.New()
			for k, v := range seeds {
				rc.Set(k, v)
			}

			exec := executor.New(logger, executor.WithStepTimeout(cfg.StepTimeout))
			runErr := exec.Execute(cmd.Context(), args[0], rc)
			if runErr != nil {
				logger.Error().Err(runErr).Msg("recipe execution failed")
				log.Error().Err(runErr).Msg("🔥 recipe execution failed")
				return runErr
			}

			log.Info().Str("recipe", args[0]).Msg("✅ recipe execution completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory to write the run's log file to (defaults to config)")
	cmd.Flags().StringArrayVar(&contextSeeds, "context", nil, "initial context artifact as key=value (repeatable)")

	return cmd
}

// parseContextSeeds turns repeated --context key=value flags into initial
// string artifacts. Values are always strings, matching §7's
// context_overrides type coercion rule (rendered template output is
// always a string; CLI-supplied seeds follow the same convention).
func parseContextSeeds(seeds []string) (map[string]string, error) {
	out := make(map[string]string, len(seeds))
	for _, s := range seeds {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --context %q: want key=value", s)
		}
		out[k] = v
	}
	return out, nil
}

// buildFileLogger creates dir if needed and returns a logger that writes
// structured JSON lines to a timestamped file inside it, in addition to
// the console writer already installed on the global logger, so a
// recipe's step-by-step log is both visible in the terminal and kept on
// disk for later inspection. An empty dir disables the file sink and
// just reuses the global console logger.
func buildFileLogger(dir, label string) (zerolog.Logger, func(), error) {
	if dir == "" {
		return log.Logger, func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Logger{}, nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", label, time.Now().UnixNano()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return logger, func() { f.Close() }, nil
}
