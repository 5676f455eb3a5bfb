package registry

import (
	"context"
	"testing"

	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/stepapi"
	"github.com/rs/zerolog"
)

type noopStep struct{}

func (noopStep) Execute(ctx context.Context, rc *recipectx.Context) error { return nil }

func noopCtor(logger zerolog.Logger, config map[string]interface{}) (stepapi.Step, error) {
	return noopStep{}, nil
}

func TestRegisterAndLookup(t *testing.T) {
	reset()
	defer reset()

	Register("noop", noopCtor)

	ctor, ok := Lookup("noop")
	if !ok {
		t.Fatal("Lookup(noop) = false, want true after Register")
	}
	if ctor == nil {
		t.Fatal("Lookup returned nil constructor")
	}

	if _, ok := Lookup("does_not_exist"); ok {
		t.Fatal("Lookup(does_not_exist) = true, want false")
	}
}

// TestDoubleRegistrationPanics enforces the idempotence-of-registration
// law from spec.md §8: double-registering the same type name is a
// configuration error, never a silent overwrite.
func TestDoubleRegistrationPanics(t *testing.T) {
	reset()
	defer reset()

	Register("dup", noopCtor)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Register(dup) a second time did not panic")
		}
	}()
	Register("dup", noopCtor)
}

func TestRegisteredTypesSorted(t *testing.T) {
	reset()
	defer reset()

	Register("zeta", noopCtor)
	Register("alpha", noopCtor)

	got := RegisteredTypes()
	want := []string{"alpha", "zeta"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("RegisteredTypes() = %v, want %v", got, want)
	}
}
