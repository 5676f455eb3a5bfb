package steps

import "github.com/recipeforge/recipeforge/internal/registry"

// init registers every built-in step type with the process-wide registry,
// the same "import for side effect, register in init" pattern the teacher
// uses for its provider drivers — importing this package once (typically
// from main) is enough to make every built-in step type available.
func init() {
	registry.MustRegister("execute_recipe", newExecuteRecipeStep)
	registry.MustRegister("parallel", newParallelStep)
	registry.MustRegister("loop", newLoopStep)
	registry.MustRegister("conditional", newConditionalStep)
	registry.MustRegister("read_files", newReadFilesStep)
	registry.MustRegister("write_files", newWriteFilesStep)
	registry.MustRegister("llm_generate", newLLMGenerateStep)
	registry.MustRegister("mcp", newMcpStep)
	registry.MustRegister("run_command", newRunCommandStep)
}
