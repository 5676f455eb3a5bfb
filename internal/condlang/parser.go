package condlang

import "fmt"

// callArity bounds the argument count of each function-call form the
// grammar recognizes, so that e.g. `not(a, b)` is rejected at parse time
// rather than silently accepted and misevaluated.
var callArity = map[string][2]int{
	"and":         {1, -1},
	"or":          {1, -1},
	"not":         {1, 1},
	"contains":    {2, 2},
	"startswith":  {2, 2},
	"file_exists": {1, 1},
	"all_exist":   {1, 1},
	"is_newer":    {2, 2},
}

// parser is a recursive-descent parser over the single production the
// grammar needs: an optional comparison wrapping a primary. There is no
// operator-precedence climbing because the grammar has exactly one binary
// operator family (the six comparisons) and no arithmetic operators — the
// logical combinators are function calls, not infix operators.
type parser struct {
	lex *lexer
	tok token
}

// Parse compiles expression text into a Node, enforcing the closed
// grammar of spec.md §4.7. Any lexical or syntactic failure — including an
// unrecognized function name or wrong argument count — is reported as an
// error the caller wraps in a ConditionSyntaxError; nothing here ever
// evaluates host-language code.
func Parse(expression string) (Node, error) {
	p := &parser{lex: newLexer(expression)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at %q", p.tok.text)
	}
	return node, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokOp {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil

	case tokString:
		v := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil

	case tokLBracket:
		return p.parseArray()

	case tokIdent:
		return p.parseIdentLed()

	default:
		return nil, fmt.Errorf("unexpected token %q", p.tok.text)
	}
}

func (p *parser) parseIdentLed() (Node, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch name {
	case "true":
		return &Literal{Value: true}, nil
	case "false":
		return &Literal{Value: false}, nil
	case "null":
		return &Literal{Value: nil}, nil
	case "context":
		return p.parseContextRef()
	}

	arity, known := callArity[name]
	if !known {
		return nil, fmt.Errorf("unsupported construct %q", name)
	}
	if p.tok.kind != tokLParen {
		return nil, fmt.Errorf("expected \"(\" after %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var args []Node
	if p.tok.kind != tokRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if p.tok.kind != tokRParen {
		return nil, fmt.Errorf("expected \")\" to close %q(...)", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	min, max := arity[0], arity[1]
	if len(args) < min || (max >= 0 && len(args) > max) {
		return nil, fmt.Errorf("%s: wrong number of arguments (got %d)", name, len(args))
	}

	return &Call{Name: name, Args: args}, nil
}

func (p *parser) parseContextRef() (Node, error) {
	if p.tok.kind != tokLBracket {
		return nil, fmt.Errorf("expected \"[\" after context")
	}
	var keys []string
	for p.tok.kind == tokLBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokString {
			return nil, fmt.Errorf("context[...] subscript must be a string literal")
		}
		keys = append(keys, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokRBracket {
			return nil, fmt.Errorf("expected \"]\" closing context subscript")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &ContextRef{Keys: keys}, nil
}

func (p *parser) parseArray() (Node, error) {
	if err := p.advance(); err != nil { // consume '['
		return nil, err
	}
	var elems []Node
	if p.tok.kind != tokRBracket {
		for {
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
			if p.tok.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if p.tok.kind != tokRBracket {
		return nil, fmt.Errorf("expected \"]\" to close array literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &Array{Elements: elems}, nil
}
