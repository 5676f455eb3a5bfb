package executor

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/recipeforge/recipeforge/pkg/models"
	"github.com/rs/zerolog/log"
)

// Load resolves recipeInput to a validated *models.Recipe, accepting the
// four forms spec.md §4.2 names, tried in priority order:
//
//  1. an already-validated *models.Recipe / models.Recipe — used as-is
//  2. a map[string]interface{} — validated against the Recipe schema
//  3. a string naming an existing file — read as UTF-8, parsed as JSON, validated
//  4. any other string — parsed as JSON, validated
//
// Anything else fails with UnsupportedInputError.
func Load(recipeInput interface{}) (*models.Recipe, error) {
	switch v := recipeInput.(type) {
	case *models.Recipe:
		if v == nil {
			return nil, &ValidationError{Reason: "recipe is nil"}
		}
		if err := validate(v); err != nil {
			return nil, err
		}
		return v, nil

	case models.Recipe:
		if err := validate(&v); err != nil {
			return nil, err
		}
		return &v, nil

	case map[string]interface{}:
		return loadFromMapping(v)

	case string:
		return loadFromString(v)

	default:
		return nil, &UnsupportedInputError{Value: recipeInput}
	}
}

func loadFromMapping(m map[string]interface{}) (*models.Recipe, error) {
	logUnknownTopLevelKeys(m)
	logUnknownStepFields(m)

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, &LoadError{Source: "<mapping>", Err: err}
	}
	return decodeAndValidate(raw, "<mapping>")
}

func loadFromString(s string) (*models.Recipe, error) {
	if info, err := os.Stat(s); err == nil && !info.IsDir() {
		data, err := os.ReadFile(s)
		if err != nil {
			return nil, &LoadError{Source: s, Err: err}
		}
		return decodeAndValidate(data, s)
	}
	// Not an existing file path: treat the string itself as JSON.
	return decodeAndValidate([]byte(s), "<inline>")
}

func decodeAndValidate(data []byte, source string) (*models.Recipe, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	logUnknownTopLevelKeys(raw)
	logUnknownStepFields(raw)

	var recipe models.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	if err := validate(&recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// validate enforces the Recipe/Step-spec invariants from spec.md §3:
// `steps` is present and a sequence; each step resolves `type` as a
// non-empty string and `config` (if present) is a mapping.
func validate(r *models.Recipe) error {
	if r.Steps == nil {
		return &ValidationError{Reason: "missing required field \"steps\""}
	}
	for i, step := range r.Steps {
		if step.Type == "" {
			return &ValidationError{Reason: fmt.Sprintf("step %d: missing required field \"type\"", i)}
		}
	}
	return nil
}

// logUnknownTopLevelKeys logs (at debug) any key other than "steps" found
// at the top level of a raw recipe mapping — spec.md §6: "Unknown fields
// at any level are ignored by the loader but should produce a debug log
// entry."
func logUnknownTopLevelKeys(raw map[string]interface{}) {
	for k := range raw {
		if k != "steps" {
			log.Debug().Str("field", k).Msg("recipe loader: ignoring unknown top-level field")
		}
	}
}

// logUnknownStepFields logs (at debug) any field on a step object other
// than "type" and "config" — same "ignored but logged" rule applied one
// level down.
func logUnknownStepFields(raw map[string]interface{}) {
	steps, ok := raw["steps"].([]interface{})
	if !ok {
		return
	}
	for i, s := range steps {
		stepMap, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		for k := range stepMap {
			if k != "type" && k != "config" {
				log.Debug().Int("step", i).Str("field", k).Msg("recipe loader: ignoring unknown step field")
			}
		}
	}
}
