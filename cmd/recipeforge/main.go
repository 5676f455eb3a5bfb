// Command recipeforge is the CLI front door to the recipe execution
// engine: `run` drives a single recipe to completion, `validate` loads
// and checks a recipe without executing it, and `serve` starts the
// optional HTTP control surface. It follows the teacher's cmd/server/
// main.go logging setup (zerolog.ConsoleWriter, RFC3339 timestamps) and
// bartekus-stagecraft's cobra command-tree construction
// (NewXCommand() *cobra.Command, SilenceUsage/SilenceErrors on the root).
package main

import (
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/recipeforge/recipeforge/cmd/recipeforge/commands"
)

func main() {
	out := colorable.NewColorableStderr()
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     out,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
