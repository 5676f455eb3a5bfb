package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// readFilesConfig mirrors spec.md §4.8's read_files summary. Path accepts
// any of the three JSON shapes the config allows (a single templated
// string, a comma-separated templated string, or a sequence of templated
// strings) via decodePathField's json.RawMessage decode in the constructor.
type readFilesConfig struct {
	Path       json.RawMessage `json:"path"`
	ContentKey string          `json:"content_key"`
	Artifact   string          `json:"artifact"`
	Optional   bool            `json:"optional"`
	MergeMode  string          `json:"merge_mode"`

	paths []string // decoded from Path
	key   string   // resolved ContentKey/Artifact
}

type readFilesStep struct {
	logger zerolog.Logger
	config readFilesConfig
}

func newReadFilesStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg readFilesConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}

	paths, err := decodePathField(cfg.Path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errMissingField("path")
	}
	cfg.paths = paths

	cfg.key = cfg.ContentKey
	if cfg.key == "" {
		cfg.key = cfg.Artifact
	}
	if cfg.key == "" {
		return nil, errMissingField("content_key")
	}

	if cfg.MergeMode == "" {
		cfg.MergeMode = "concat"
	}
	if cfg.MergeMode != "concat" && cfg.MergeMode != "dict" {
		return nil, fmt.Errorf("merge_mode must be \"concat\" or \"dict\", got %q", cfg.MergeMode)
	}

	return &readFilesStep{logger: logger, config: cfg}, nil
}

// decodePathField accepts the three JSON shapes path may take: a plain
// string (optionally comma-separated), or a JSON array of strings.
func decodePathField(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parts := strings.Split(asString, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	return nil, fmt.Errorf("path must be a string or a sequence of strings")
}

// Execute renders every configured path, reads each file, and stores the
// result under content_key/artifact, always respecting MergeMode
// regardless of how many paths were configured (spec.md §9 resolves the
// source repository's inconsistency on this point in favor of this rule):
// "concat" joins contents with a path-header separator for multiple
// files, or stores the bare content for a single file (skipping missing
// optional files); "dict" always stores {path: contents}, including for a
// single path (omitting missing optional files).
func (s *readFilesStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	renderedPaths := make([]string, len(s.config.paths))
	for i, p := range s.config.paths {
		rp, err := renderString(p, rc)
		if err != nil {
			return err
		}
		renderedPaths[i] = rp
	}

	if s.config.MergeMode == "dict" {
		out := make(map[string]interface{}, len(renderedPaths))
		for _, p := range renderedPaths {
			content, ok, err := s.readOne(p)
			if err != nil {
				return err
			}
			if ok {
				out[p] = content
			}
		}
		rc.Set(s.config.key, out)
		return nil
	}

	if len(renderedPaths) == 1 {
		content, ok, err := s.readOne(renderedPaths[0])
		if err != nil {
			return err
		}
		if !ok {
			content = ""
		}
		rc.Set(s.config.key, content)
		return nil
	}

	var parts []string
	for _, p := range renderedPaths {
		content, ok, err := s.readOne(p)
		if err != nil {
			return err
		}
		if ok {
			parts = append(parts, fmt.Sprintf("--- %s ---\n%s", p, content))
		}
	}
	rc.Set(s.config.key, strings.Join(parts, "\n\n"))
	return nil
}

// readOne reads path, returning (content, found, error). A missing
// optional file reports found=false with a nil error; a missing required
// file is an error.
func (s *readFilesStep) readOne(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && s.config.Optional {
			s.logger.Debug().Str("path", path).Msg("optional file missing, skipping")
			return "", false, nil
		}
		return "", false, fmt.Errorf("read file %q: %w", path, err)
	}
	return string(data), true, nil
}
