// Package render is the one seam every step uses to interpolate context
// values into templated string fields (spec.md §4.3: "renders every string
// field it treats as a template through the Template Renderer before
// use"). It is a thin, pure boundary: render(text, ctx) -> (string, error).
//
// The renderer itself is swappable — spec.md §9 calls for isolating
// rendering "behind a render(text, ctx) -> string seam so implementations
// can choose any compatible template engine." This implementation backs
// that seam with osteele/liquid, since spec.md §2 describes the template
// language as "a Liquid-like template language."
package render

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
	"github.com/recipeforge/recipeforge/internal/recipectx"
)

var (
	engineOnce sync.Once
	engine     *liquid.Engine
)

func sharedEngine() *liquid.Engine {
	engineOnce.Do(func() {
		engine = liquid.NewEngine()
	})
	return engine
}

// Render substitutes values from rc's artifact scope into text using the
// Liquid template language and returns the rendered string. A template
// that fails to parse or fails to render (undefined filter, type error,
// etc.) returns a non-nil error; the caller is expected to wrap it as a
// TemplateError.
func Render(text string, rc *recipectx.Context) (string, error) {
	if text == "" {
		return "", nil
	}
	bindings := liquid.Bindings(rc.AsMapping())
	out, err := sharedEngine().ParseAndRenderString(text, bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// RenderAll renders every value in fields through Render against rc,
// returning a new map with the rendered results. It is a convenience for
// steps that template a whole config map of string values (e.g.
// execute_recipe's context_overrides) rather than one field at a time.
func RenderAll(fields map[string]string, rc *recipectx.Context) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		rendered, err := Render(v, rc)
		if err != nil {
			return nil, fmt.Errorf("render %q: %w", k, err)
		}
		out[k] = rendered
	}
	return out, nil
}
