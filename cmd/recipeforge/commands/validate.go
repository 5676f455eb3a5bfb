package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recipeforge/recipeforge/internal/executor"
)

// NewValidateCommand returns `recipeforge validate <recipe_path>`, which
// loads and validates a recipe without executing any of its steps.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <recipe_path>",
		Short: "Load and validate a recipe without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipe, err := executor.Load(args[0])
			if err != nil {
				var validationErr *executor.ValidationError
				var loadErr *executor.LoadError
				switch {
				case errors.As(err, &validationErr):
					return fmt.Errorf("recipe is invalid: %w", err)
				case errors.As(err, &loadErr):
					return fmt.Errorf("could not load recipe: %w", err)
				default:
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recipe %s is valid: %d step(s)\n", args[0], len(recipe.Steps))
			return nil
		},
	}
}
