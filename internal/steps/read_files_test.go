package steps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newStep(t *testing.T, stepType string, config map[string]interface{}) interface {
	Execute(ctx context.Context, rc *recipectx.Context) error
} {
	t.Helper()
	ctor, ok := registry.Lookup(stepType)
	require.True(t, ok, "step type %q is not registered", stepType)
	step, err := ctor(zerolog.Nop(), config)
	require.NoError(t, err)
	return step
}

func TestReadFilesSingle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	step := newStep(t, "read_files", map[string]interface{}{
		"path":        path,
		"content_key": "content",
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("content")
	require.True(t, ok)
	require.Equal(t, "hello", got)
}

func TestReadFilesConcatMultiple(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("B"), 0o644))

	step := newStep(t, "read_files", map[string]interface{}{
		"path":        []interface{}{a, b},
		"content_key": "content",
		"merge_mode":  "concat",
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))

	got, _ := rc.Get("content")
	text := got.(string)
	require.Contains(t, text, "A")
	require.Contains(t, text, "B")
}

func TestReadFilesMissingRequiredFails(t *testing.T) {
	step := newStep(t, "read_files", map[string]interface{}{
		"path":        "/does/not/exist.txt",
		"content_key": "content",
	})

	rc := recipectx.New()
	err := step.Execute(context.Background(), rc)
	require.Error(t, err)
}

func TestReadFilesMissingOptionalSkipped(t *testing.T) {
	step := newStep(t, "read_files", map[string]interface{}{
		"path":        "/does/not/exist.txt",
		"content_key": "content",
		"optional":    true,
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))
	got, ok := rc.Get("content")
	require.True(t, ok)
	require.Equal(t, "", got)
}

func TestReadFilesSingleDictModeRespectsMergeMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	step := newStep(t, "read_files", map[string]interface{}{
		"path":        path,
		"content_key": "content",
		"merge_mode":  "dict",
	})

	rc := recipectx.New()
	require.NoError(t, step.Execute(context.Background(), rc))

	got, ok := rc.Get("content")
	require.True(t, ok)
	out, ok := got.(map[string]interface{})
	require.True(t, ok, "merge_mode=dict with a single path must still produce {path: content}, not a raw string")
	require.Equal(t, "hello", out[path])
}
