package render_test

import (
	"testing"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/render"
)

func TestRenderSubstitutesContextValue(t *testing.T) {
	rc := recipectx.New()
	rc.Set("name", "world")

	out, err := render.Render("hello {{ name }}", rc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "hello world" {
		t.Fatalf("Render() = %q, want %q", out, "hello world")
	}
}

func TestRenderEmptyStringIsNoop(t *testing.T) {
	rc := recipectx.New()
	out, err := render.Render("", rc)
	if err != nil || out != "" {
		t.Fatalf("Render(\"\") = %q, %v; want \"\", nil", out, err)
	}
}

func TestRenderAll(t *testing.T) {
	rc := recipectx.New()
	rc.Set("root", "/tmp/out")

	fields := map[string]string{
		"path": "{{ root }}/file.txt",
	}
	out, err := render.RenderAll(fields, rc)
	if err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}
	if out["path"] != "/tmp/out/file.txt" {
		t.Fatalf("RenderAll()[path] = %q, want %q", out["path"], "/tmp/out/file.txt")
	}
}

func TestRenderUndefinedVariableRendersEmpty(t *testing.T) {
	rc := recipectx.New()
	// Liquid's default behavior for an undefined variable is to render it
	// as empty rather than error — matches how most Liquid-like engines
	// treat missing bindings permissively.
	out, err := render.Render("[{{ missing }}]", rc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "[]" {
		t.Fatalf("Render() = %q, want %q", out, "[]")
	}
}
