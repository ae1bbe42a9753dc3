package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/semdex/triple"
)

// evalExpr evaluates an expression against one binding. Errors returned
// here are evaluation-local: the caller drops the binding and moves on.
func evalExpr(e Expr, b *triple.Binding) (triple.Term, error) {
	switch x := e.(type) {
	case *VariableExpr:
		term, ok := b.Get(x.Name)
		if !ok {
			return nil, fmt.Errorf("%w: ?%s", errUnboundVariable, x.Name)
		}
		return term, nil

	case *LiteralExpr:
		return x.Term, nil

	case *ComparisonExpr:
		return evalComparison(x, b)

	case *LogicalExpr:
		return evalLogical(x, b)

	case *FunctionExpr:
		return evalFunction(x, b)

	case *AggregateExpr:
		return nil, errAggregateScope

	default:
		return nil, fmt.Errorf("%w: %T", errUnknownFunction, e)
	}
}

// evalBool evaluates an expression and reduces it to an effective boolean.
func evalBool(e Expr, b *triple.Binding) (bool, error) {
	term, err := evalExpr(e, b)
	if err != nil {
		return false, err
	}
	return effectiveBool(term)
}

// effectiveBool maps a term to its truth value: booleans as themselves,
// numbers by non-zero, strings by non-empty. Anything else has no truth
// value and errors.
func effectiveBool(t triple.Term) (bool, error) {
	lit, ok := t.(triple.Literal)
	if !ok {
		return false, errNotBoolean
	}
	switch v := lit.Value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		return v != "", nil
	default:
		return false, errNotBoolean
	}
}

func evalComparison(x *ComparisonExpr, b *triple.Binding) (triple.Term, error) {
	left, err := evalExpr(x.Left, b)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(x.Right, b)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case "=":
		return triple.NewBoolLiteral(left.Equal(right)), nil
	case "!=":
		return triple.NewBoolLiteral(!left.Equal(right)), nil
	}

	cmp, err := compareTerms(left, right)
	if err != nil {
		return nil, err
	}
	var result bool
	switch x.Op {
	case "<":
		result = cmp < 0
	case ">":
		result = cmp > 0
	case "<=":
		result = cmp <= 0
	case ">=":
		result = cmp >= 0
	default:
		return nil, fmt.Errorf("%w: comparison %q", errUnknownFunction, x.Op)
	}
	return triple.NewBoolLiteral(result), nil
}

func evalLogical(x *LogicalExpr, b *triple.Binding) (triple.Term, error) {
	switch x.Op {
	case "!":
		v, err := evalBool(x.Operands[0], b)
		if err != nil {
			return nil, err
		}
		return triple.NewBoolLiteral(!v), nil

	case "&&":
		for _, operand := range x.Operands {
			v, err := evalBool(operand, b)
			if err != nil {
				return nil, err
			}
			if !v {
				return triple.NewBoolLiteral(false), nil
			}
		}
		return triple.NewBoolLiteral(true), nil

	case "||":
		for _, operand := range x.Operands {
			v, err := evalBool(operand, b)
			if err != nil {
				return nil, err
			}
			if v {
				return triple.NewBoolLiteral(true), nil
			}
		}
		return triple.NewBoolLiteral(false), nil

	default:
		return nil, fmt.Errorf("%w: logical %q", errUnknownFunction, x.Op)
	}
}

func evalFunction(x *FunctionExpr, b *triple.Binding) (triple.Term, error) {
	// bound() inspects the binding itself rather than its argument's value,
	// so an unbound variable is an answer here, not an error.
	if x.Name == "bound" {
		if len(x.Args) != 1 {
			return nil, fmt.Errorf("%w: bound takes one argument", errTypeMismatch)
		}
		v, ok := x.Args[0].(*VariableExpr)
		if !ok {
			return nil, fmt.Errorf("%w: bound takes a variable", errTypeMismatch)
		}
		_, isBound := b.Get(v.Name)
		return triple.NewBoolLiteral(isBound), nil
	}

	args := make([]triple.Term, 0, len(x.Args))
	for _, arg := range x.Args {
		term, err := evalExpr(arg, b)
		if err != nil {
			return nil, err
		}
		args = append(args, term)
	}

	switch x.Name {
	case "str":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: str takes one argument", errTypeMismatch)
		}
		return triple.NewStringLiteral(args[0].Text()), nil

	case "lcase":
		s, err := stringArg(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewStringLiteral(strings.ToLower(s)), nil

	case "ucase":
		s, err := stringArg(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewStringLiteral(strings.ToUpper(s)), nil

	case "strlen":
		s, err := stringArg(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewNumberLiteral(float64(utf8.RuneCountInString(s))), nil

	case "contains":
		a, b2, err := stringArgs2(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewBoolLiteral(strings.Contains(a, b2)), nil

	case "strstarts":
		a, b2, err := stringArgs2(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewBoolLiteral(strings.HasPrefix(a, b2)), nil

	case "strends":
		a, b2, err := stringArgs2(x.Name, args)
		if err != nil {
			return nil, err
		}
		return triple.NewBoolLiteral(strings.HasSuffix(a, b2)), nil

	case "regex":
		return evalRegex(args)

	case "abs":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: abs takes one argument", errTypeMismatch)
		}
		n, err := numberValue(args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = -n
		}
		return triple.NewNumberLiteral(n), nil

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownFunction, x.Name)
	}
}

// evalRegex matches a string against a pattern, with an optional "i" flag
// argument for case-insensitive matching.
func evalRegex(args []triple.Term) (triple.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("%w: regex takes two or three arguments", errTypeMismatch)
	}
	text, err := stringValue(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := stringValue(args[1])
	if err != nil {
		return nil, err
	}
	if len(args) == 3 {
		flags, err := stringValue(args[2])
		if err != nil {
			return nil, err
		}
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad regex pattern: %v", errTypeMismatch, err)
	}
	return triple.NewBoolLiteral(re.MatchString(text)), nil
}

// compareTerms orders two terms for the <, >, <=, >= operators. Numbers
// compare numerically, dates chronologically, strings lexically. Mixing
// kinds is a type mismatch.
func compareTerms(a, b triple.Term) (int, error) {
	la, aIsLit := a.(triple.Literal)
	lb, bIsLit := b.(triple.Literal)

	if aIsLit && bIsLit {
		if na, ok := la.Number(); ok {
			nb, ok := lb.Number()
			if !ok {
				return 0, errTypeMismatch
			}
			switch {
			case na < nb:
				return -1, nil
			case na > nb:
				return 1, nil
			default:
				return 0, nil
			}
		}
		if da, ok := la.Date(); ok {
			db, ok := lb.Date()
			if !ok {
				return 0, errTypeMismatch
			}
			switch {
			case da.Before(db):
				return -1, nil
			case da.After(db):
				return 1, nil
			default:
				return 0, nil
			}
		}
		sa, aOK := la.Value.(string)
		sb, bOK := lb.Value.(string)
		if aOK && bOK {
			return strings.Compare(sa, sb), nil
		}
		return 0, errTypeMismatch
	}

	if a.Type() == triple.TermIRI && b.Type() == triple.TermIRI {
		return strings.Compare(a.Text(), b.Text()), nil
	}
	return 0, errTypeMismatch
}

// sortCompare is the total order used by ORDER BY. Unbound sorts before
// any bound term; numbers compare numerically when both sides are
// numeric; everything else falls back to the lexical form, with the
// canonical key as a final tiebreak so the order is deterministic.
func sortCompare(a, b triple.Term) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if la, ok := a.(triple.Literal); ok {
		if lb, ok := b.(triple.Literal); ok {
			if na, aNum := la.Number(); aNum {
				if nb, bNum := lb.Number(); bNum {
					switch {
					case na < nb:
						return -1
					case na > nb:
						return 1
					default:
						return 0
					}
				}
			}
			if da, aDate := la.Date(); aDate {
				if db, bDate := lb.Date(); bDate {
					switch {
					case da.Before(db):
						return -1
					case da.After(db):
						return 1
					default:
						return 0
					}
				}
			}
		}
	}

	if c := strings.Compare(a.Text(), b.Text()); c != 0 {
		return c
	}
	return strings.Compare(a.Key(), b.Key())
}

func stringArg(name string, args []triple.Term) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes one argument", errTypeMismatch, name)
	}
	return stringValue(args[0])
}

func stringArgs2(name string, args []triple.Term) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("%w: %s takes two arguments", errTypeMismatch, name)
	}
	a, err := stringValue(args[0])
	if err != nil {
		return "", "", err
	}
	b, err := stringValue(args[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

// stringValue extracts the string value of a literal.
func stringValue(t triple.Term) (string, error) {
	lit, ok := t.(triple.Literal)
	if !ok {
		return "", errTypeMismatch
	}
	s, ok := lit.Value.(string)
	if !ok {
		return "", errTypeMismatch
	}
	return s, nil
}

// numberValue extracts the numeric value of a literal.
func numberValue(t triple.Term) (float64, error) {
	lit, ok := t.(triple.Literal)
	if !ok {
		return 0, errTypeMismatch
	}
	n, ok := lit.Number()
	if !ok {
		return 0, errTypeMismatch
	}
	return n, nil
}
