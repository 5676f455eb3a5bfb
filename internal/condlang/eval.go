// Package condlang implements the closed conditional expression language
// of spec.md §4.7: a hand-written lexer and recursive-descent parser
// enforce the grammar, and the evaluator walks the resulting AST against
// a recipe Context. Nothing here calls a host-language eval on recipe
// text — the parser accepts only the constructs the grammar names and
// rejects everything else as a syntax error before any evaluation begins.
//
// The one place this package reaches for a real expression engine rather
// than hand-rolling comparison logic is Comparison evaluation: once the
// two operands have already been parsed and evaluated down to concrete
// Go values by this package's own AST walker, the actual `==`/`<`/`>=`/...
// comparison is delegated to expr-lang/expr, run against a two-variable
// expr.Env holding just those operands. That keeps the syntax surface
// exactly as closed as the grammar defines while giving the evaluator a
// battle-tested numeric/string comparison semantics instead of a
// hand-rolled type-coercion table.
package condlang

import (
	"fmt"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/recipeforge/recipeforge/internal/recipectx"
)

// Eval parses and evaluates expression against rc, returning its
// truthiness per spec.md §4.7 ("null and empty collection/string are
// false; anything else is true"). Callers are expected to wrap a non-nil
// error in executor.ConditionSyntaxError.
func Eval(expression string, rc *recipectx.Context) (bool, error) {
	node, err := Parse(expression)
	if err != nil {
		return false, err
	}
	v, err := evalNode(node, rc)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func evalNode(n Node, rc *recipectx.Context) (interface{}, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil

	case *ContextRef:
		return evalContextRef(v, rc)

	case *Array:
		out := make([]interface{}, len(v.Elements))
		for i, el := range v.Elements {
			val, err := evalNode(el, rc)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil

	case *Comparison:
		return evalComparison(v, rc)

	case *Call:
		return evalCall(v, rc)

	default:
		return nil, fmt.Errorf("condlang: unhandled node type %T", n)
	}
}

func evalContextRef(ref *ContextRef, rc *recipectx.Context) (interface{}, error) {
	if len(ref.Keys) == 0 {
		return nil, fmt.Errorf("context reference has no keys")
	}
	cur, ok := rc.Get(ref.Keys[0])
	if !ok {
		return nil, nil
	}
	for _, k := range ref.Keys[1:] {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		cur, ok = m[k]
		if !ok {
			return nil, nil
		}
	}
	return cur, nil
}

// evalComparison evaluates both sides to concrete values, then hands the
// comparison itself to expr-lang/expr rather than writing a bespoke
// type-coercion table by hand.
func evalComparison(c *Comparison, rc *recipectx.Context) (interface{}, error) {
	left, err := evalNode(c.Left, rc)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(c.Right, rc)
	if err != nil {
		return nil, err
	}

	env := map[string]interface{}{"a": left, "b": right}
	program, err := expr.Compile(fmt.Sprintf("a %s b", c.Op), expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile comparison %q: %w", c.Op, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate comparison %q: %w", c.Op, err)
	}
	b, ok := out.(bool)
	if !ok {
		return nil, fmt.Errorf("comparison %q did not produce a boolean", c.Op)
	}
	return b, nil
}

func evalCall(c *Call, rc *recipectx.Context) (interface{}, error) {
	switch c.Name {
	case "and":
		for _, arg := range c.Args {
			v, err := evalNode(arg, rc)
			if err != nil {
				return nil, err
			}
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil

	case "or":
		for _, arg := range c.Args {
			v, err := evalNode(arg, rc)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil

	case "not":
		v, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil

	case "contains":
		collection, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		item, err := evalNode(c.Args[1], rc)
		if err != nil {
			return nil, err
		}
		return containsValue(collection, item), nil

	case "startswith":
		s, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		prefix, err := evalNode(c.Args[1], rc)
		if err != nil {
			return nil, err
		}
		ss, ok1 := s.(string)
		ps, ok2 := prefix.(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("startswith: both arguments must be strings")
		}
		return strings.HasPrefix(ss, ps), nil

	case "file_exists":
		path, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		ps, ok := path.(string)
		if !ok {
			return false, fmt.Errorf("file_exists: argument must be a string")
		}
		_, statErr := os.Stat(ps)
		return statErr == nil, nil

	case "all_exist":
		paths, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		list, ok := paths.([]interface{})
		if !ok {
			return false, fmt.Errorf("all_exist: argument must be a list of paths")
		}
		for _, p := range list {
			ps, ok := p.(string)
			if !ok {
				return false, fmt.Errorf("all_exist: path list must contain only strings")
			}
			if _, err := os.Stat(ps); err != nil {
				return false, nil
			}
		}
		return true, nil

	case "is_newer":
		source, err := evalNode(c.Args[0], rc)
		if err != nil {
			return nil, err
		}
		target, err := evalNode(c.Args[1], rc)
		if err != nil {
			return nil, err
		}
		ss, ok1 := source.(string)
		ts, ok2 := target.(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("is_newer: both arguments must be strings")
		}
		srcInfo, err1 := os.Stat(ss)
		tgtInfo, err2 := os.Stat(ts)
		if err1 != nil || err2 != nil {
			return false, nil
		}
		return srcInfo.ModTime().After(tgtInfo.ModTime()), nil

	default:
		return nil, fmt.Errorf("condlang: unsupported function %q", c.Name)
	}
}

func containsValue(collection, item interface{}) bool {
	switch c := collection.(type) {
	case string:
		s, ok := item.(string)
		return ok && strings.Contains(c, s)
	case []interface{}:
		for _, el := range c {
			if el == item {
				return true
			}
		}
		return false
	case map[string]interface{}:
		key, ok := item.(string)
		if !ok {
			return false
		}
		_, exists := c[key]
		return exists
	default:
		return false
	}
}

// truthy implements spec.md §4.7's bare-value truthiness rule: null and
// empty collections/strings are false, anything else is true.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []interface{}:
		return len(val) != 0
	case map[string]interface{}:
		return len(val) != 0
	default:
		return true
	}
}
