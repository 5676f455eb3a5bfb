package condlang

// Node is one parsed node of a conditional expression. The grammar is
// closed (spec.md §4.7): literals, context[...] references, comparisons,
// the logical/membership/filesystem function calls, and array literals —
// nothing else parses.
type Node interface {
	node()
}

// Literal is a bare true/false/null/number/string token.
type Literal struct {
	Value interface{}
}

func (Literal) node() {}

// ContextRef is `context["a"]["b"]...` — a chain of string subscripts
// rooted at the context artifact scope.
type ContextRef struct {
	Keys []string
}

func (ContextRef) node() {}

// Comparison is one of == != < <= > >= applied to two sub-expressions.
type Comparison struct {
	Op    string
	Left  Node
	Right Node
}

func (Comparison) node() {}

// Call is the function-call form shared by the logical combinators
// (and/or/not), membership (contains/startswith), and the filesystem
// predicates (file_exists/all_exist/is_newer).
type Call struct {
	Name string
	Args []Node
}

func (Call) node() {}

// Array is a `[expr, expr, ...]` literal, used for all_exist's path list
// and as a literal collection operand to contains.
type Array struct {
	Elements []Node
}

func (Array) node() {}
