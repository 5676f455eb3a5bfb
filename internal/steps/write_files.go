package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// fileSpec is one {path, content} entry, either given literally in config
// or resolved from a context value named by FilesKey.
type fileSpec struct {
	Path    string      `json:"path"`
	Content interface{} `json:"content"`
}

// writeFilesConfig mirrors spec.md §4.8's write_files summary.
type writeFilesConfig struct {
	Files    []fileSpec `json:"files"`
	FilesKey string     `json:"files_key"`
	Root     string     `json:"root"`
}

type writeFilesStep struct {
	logger zerolog.Logger
	config writeFilesConfig
}

func newWriteFilesStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg writeFilesConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Files) == 0 && cfg.FilesKey == "" {
		return nil, errMissingField("files or files_key")
	}
	return &writeFilesStep{logger: logger, config: cfg}, nil
}

// Execute resolves the file specs (literal Files, or the context value
// named by FilesKey — either one spec or a list of them), renders Root
// and each spec's Path, creates parent directories, and writes the
// content — JSON-serializing any non-string content.
func (s *writeFilesStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	specs, err := s.resolveSpecs(rc)
	if err != nil {
		return err
	}

	root := ""
	if s.config.Root != "" {
		root, err = renderString(s.config.Root, rc)
		if err != nil {
			return err
		}
	}

	for _, spec := range specs {
		renderedPath, err := renderString(spec.Path, rc)
		if err != nil {
			return err
		}
		if root != "" {
			renderedPath = filepath.Join(root, renderedPath)
		}

		content, err := contentBytes(spec.Content)
		if err != nil {
			return fmt.Errorf("write_files: %s: %w", renderedPath, err)
		}

		if err := os.MkdirAll(filepath.Dir(renderedPath), 0o755); err != nil {
			return fmt.Errorf("write_files: create directory for %s: %w", renderedPath, err)
		}
		if err := os.WriteFile(renderedPath, content, 0o644); err != nil {
			return fmt.Errorf("write_files: %s: %w", renderedPath, err)
		}
		s.logger.Debug().Str("path", renderedPath).Int("bytes", len(content)).Msg("wrote file")
	}

	return nil
}

func (s *writeFilesStep) resolveSpecs(rc *recipectx.Context) ([]fileSpec, error) {
	if len(s.config.Files) > 0 {
		return s.config.Files, nil
	}

	v, ok := rc.Get(s.config.FilesKey)
	if !ok {
		return nil, fmt.Errorf("write_files: context missing files_key %q", s.config.FilesKey)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("write_files: %w", err)
	}

	var one fileSpec
	if err := json.Unmarshal(data, &one); err == nil && one.Path != "" {
		return []fileSpec{one}, nil
	}

	var many []fileSpec
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, fmt.Errorf("write_files: files_key %q is neither a file spec nor a list of file specs", s.config.FilesKey)
	}
	return many, nil
}

// contentBytes renders content to bytes for writing: a string is written
// as-is (UTF-8); anything else is serialized as indented JSON.
func contentBytes(content interface{}) ([]byte, error) {
	if s, ok := content.(string); ok {
		return []byte(s), nil
	}
	return json.MarshalIndent(content, "", "  ")
}
