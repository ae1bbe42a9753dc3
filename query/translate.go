package query

import (
	"strings"

	"github.com/c360studio/semdex/triple"
)

// Translate compiles a SELECT query AST into an algebra operation tree.
// It is a pure function: unsupported constructs and malformed patterns
// yield a *TranslateError, never a partial tree.
func Translate(q *Query) (Operation, error) {
	if q == nil {
		return nil, translateErrorf("query", "nil query")
	}
	if !strings.EqualFold(q.QueryType, "SELECT") {
		return nil, translateErrorf("query type", "%q is not supported, only SELECT queries are", q.QueryType)
	}
	if len(q.Where) == 0 {
		return nil, translateErrorf("WHERE clause", "query has no WHERE clause")
	}

	op, err := translateGroupGraphPattern(q.Where)
	if err != nil {
		return nil, err
	}

	aggregates, err := selectedAggregates(q.Variables)
	if err != nil {
		return nil, err
	}
	if len(aggregates) > 0 || len(q.GroupBy) > 0 {
		groupVars := make([]string, 0, len(q.GroupBy))
		for _, g := range q.GroupBy {
			if g.Variable == "" {
				return nil, translateErrorf("GROUP BY", "only plain variables can be grouped on")
			}
			groupVars = append(groupVars, strings.TrimPrefix(g.Variable, "?"))
		}
		op = &Group{Variables: groupVars, Aggregates: aggregates, Input: op}
	}

	if projectVars, explicit := selectedVariables(q.Variables); explicit {
		op = &Project{Variables: projectVars, Input: op}
	}

	if q.Distinct {
		op = &Distinct{Input: op}
	}

	if len(q.OrderBy) > 0 {
		comparators := make([]Comparator, 0, len(q.OrderBy))
		for i := range q.OrderBy {
			expr, err := translateExpression(&q.OrderBy[i].Expression)
			if err != nil {
				return nil, err
			}
			comparators = append(comparators, Comparator{
				Expression: expr,
				Descending: q.OrderBy[i].Descending,
			})
		}
		op = &OrderBy{Comparators: comparators, Input: op}
	}

	if q.Limit != nil || q.Offset != nil {
		op = &Slice{Limit: q.Limit, Offset: q.Offset, Input: op}
	}

	return op, nil
}

// translateGroupGraphPattern folds the elements of a group into one
// operation. Pattern elements join left-associatively; OPTIONAL folds as a
// left join whose left input is the pattern accumulated so far (an empty
// BGP when OPTIONAL comes first); FILTER expressions collect and wrap the
// folded group result, so a filter may reference variables bound by any
// sibling element.
func translateGroupGraphPattern(patterns []Pattern) (Operation, error) {
	var acc Operation
	var filters []Expr

	for i := range patterns {
		p := &patterns[i]
		switch p.Type {
		case PatternBGP:
			op, err := translateBGP(p.Triples)
			if err != nil {
				return nil, err
			}
			acc = joinWith(acc, op)

		case PatternGroup:
			op, err := translateGroupGraphPattern(p.Patterns)
			if err != nil {
				return nil, err
			}
			acc = joinWith(acc, op)

		case PatternUnion:
			op, err := translateUnion(p.Patterns)
			if err != nil {
				return nil, err
			}
			acc = joinWith(acc, op)

		case PatternOptional:
			inner, expr, err := translateOptional(p.Patterns)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = &BGP{}
			}
			acc = &LeftJoin{Left: acc, Right: inner, Expression: expr}

		case PatternFilter:
			if p.Expression == nil {
				return nil, translateErrorf("FILTER", "filter has no expression")
			}
			expr, err := translateExpression(p.Expression)
			if err != nil {
				return nil, err
			}
			filters = append(filters, expr)

		default:
			return nil, translateErrorf("pattern", "unrecognized pattern type %q", string(p.Type))
		}
	}

	if acc == nil {
		acc = &BGP{}
	}
	for _, f := range filters {
		acc = &Filter{Expression: f, Input: acc}
	}
	return acc, nil
}

// joinWith folds sibling pattern operations into a left-associative join
// chain.
func joinWith(acc, op Operation) Operation {
	if acc == nil {
		return op
	}
	return &Join{Left: acc, Right: op}
}

// translateBGP translates the triples of a basic graph pattern.
func translateBGP(triples []TriplePattern) (Operation, error) {
	out := make([]PatternTriple, 0, len(triples))
	for i := range triples {
		pt, err := translateTriplePattern(&triples[i])
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return &BGP{Triples: out}, nil
}

// translateUnion folds two or more alternative groups into a chain of
// union nodes.
func translateUnion(patterns []Pattern) (Operation, error) {
	if len(patterns) < 2 {
		return nil, translateErrorf("UNION", "union needs at least two alternatives, got %d", len(patterns))
	}
	ops := make([]Operation, 0, len(patterns))
	for i := range patterns {
		op, err := translateBranch(&patterns[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	acc := ops[0]
	for _, op := range ops[1:] {
		acc = &Union{Left: acc, Right: op}
	}
	return acc, nil
}

// translateBranch translates one alternative of a union, which may be a
// bare group or a single pattern element.
func translateBranch(p *Pattern) (Operation, error) {
	if p.Type == PatternGroup {
		return translateGroupGraphPattern(p.Patterns)
	}
	return translateGroupGraphPattern([]Pattern{*p})
}

// translateOptional translates an OPTIONAL body. Top-level filters inside
// the body become the left join's filter expression, combined with &&.
func translateOptional(patterns []Pattern) (Operation, Expr, error) {
	var rest []Pattern
	var exprs []Expr
	for i := range patterns {
		p := &patterns[i]
		if p.Type == PatternFilter {
			if p.Expression == nil {
				return nil, nil, translateErrorf("FILTER", "filter has no expression")
			}
			expr, err := translateExpression(p.Expression)
			if err != nil {
				return nil, nil, err
			}
			exprs = append(exprs, expr)
			continue
		}
		rest = append(rest, *p)
	}

	inner, err := translateGroupGraphPattern(rest)
	if err != nil {
		return nil, nil, err
	}

	var expr Expr
	switch len(exprs) {
	case 0:
	case 1:
		expr = exprs[0]
	default:
		expr = &LogicalExpr{Op: "&&", Operands: exprs}
	}
	return inner, expr, nil
}

// translateTriplePattern translates one triple pattern, rejecting missing
// slots and literals in subject or predicate position.
func translateTriplePattern(tp *TriplePattern) (PatternTriple, error) {
	if tp.Subject == nil || tp.Predicate == nil || tp.Object == nil {
		return PatternTriple{}, translateErrorf("triple pattern", "missing subject, predicate, or object")
	}

	s, err := translateTermNode(tp.Subject)
	if err != nil {
		return PatternTriple{}, err
	}
	p, err := translateTermNode(tp.Predicate)
	if err != nil {
		return PatternTriple{}, err
	}
	o, err := translateTermNode(tp.Object)
	if err != nil {
		return PatternTriple{}, err
	}

	if s.Type() == triple.TermLiteral {
		return PatternTriple{}, translateErrorf("triple pattern", "literal in subject position")
	}
	if p.Type() == triple.TermLiteral {
		return PatternTriple{}, translateErrorf("triple pattern", "literal in predicate position")
	}
	return PatternTriple{Subject: s, Predicate: p, Object: o}, nil
}

// translateTermNode maps an AST term node to a term value, typing literals
// by datatype: integer and decimal datatypes parse to numbers, boolean
// datatypes parse true/false, everything else stays a string.
func translateTermNode(n *TermNode) (triple.Term, error) {
	if n == nil {
		return nil, translateErrorf("term", "missing term")
	}
	switch n.Kind {
	case TermKindVariable:
		return triple.NewVariable(n.Value), nil
	case TermKindIRI:
		return triple.NewIRI(n.Value), nil
	case TermKindBlank:
		return triple.NewBlank(n.Value), nil
	case TermKindLiteral:
		if n.Language != "" {
			return triple.NewLangLiteral(n.Value, n.Language), nil
		}
		if n.Datatype != "" {
			return triple.NewTypedLiteral(n.Value, n.Datatype), nil
		}
		return triple.NewStringLiteral(n.Value), nil
	default:
		return nil, translateErrorf("term", "unrecognized term kind %q", string(n.Kind))
	}
}

// comparisonOps and logicalOps classify operators during expression
// translation; everything else becomes a function call.
var comparisonOps = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

var logicalOps = map[string]bool{
	"&&": true, "||": true, "!": true,
}

// translateExpression maps an AST expression to an algebra expression.
func translateExpression(e *Expression) (Expr, error) {
	if e == nil {
		return nil, translateErrorf("expression", "missing expression")
	}
	switch e.Kind {
	case ExprKindTerm:
		term, err := translateTermNode(e.Term)
		if err != nil {
			return nil, err
		}
		if v, ok := term.(triple.Variable); ok {
			return &VariableExpr{Name: v.Name}, nil
		}
		return &LiteralExpr{Term: term}, nil

	case ExprKindOperation:
		op := e.Operator
		args := make([]Expr, 0, len(e.Args))
		for i := range e.Args {
			arg, err := translateExpression(&e.Args[i])
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		switch {
		case comparisonOps[op]:
			if len(args) != 2 {
				return nil, translateErrorf("comparison", "%s needs two operands, got %d", op, len(args))
			}
			return &ComparisonExpr{Op: op, Left: args[0], Right: args[1]}, nil
		case logicalOps[op]:
			if op == "!" && len(args) != 1 {
				return nil, translateErrorf("logical", "! needs one operand, got %d", len(args))
			}
			if op != "!" && len(args) < 2 {
				return nil, translateErrorf("logical", "%s needs two operands, got %d", op, len(args))
			}
			return &LogicalExpr{Op: op, Operands: args}, nil
		default:
			return &FunctionExpr{Name: strings.ToLower(op), Args: args}, nil
		}

	case ExprKindAggregate:
		return translateAggregate(e)

	default:
		return nil, translateErrorf("expression", "unrecognized expression kind %q", string(e.Kind))
	}
}

// translateAggregate lowers an aggregate: the kind is normalized to
// lowercase and the inner expression is optional (COUNT(*)).
func translateAggregate(e *Expression) (*AggregateExpr, error) {
	agg := &AggregateExpr{
		Kind:      strings.ToLower(e.Aggregation),
		Distinct:  e.Distinct,
		Separator: e.Separator,
	}
	if agg.Kind == "" {
		return nil, translateErrorf("aggregate", "aggregate has no aggregation kind")
	}
	if e.Inner != nil && !isWildcardExpr(e.Inner) {
		inner, err := translateExpression(e.Inner)
		if err != nil {
			return nil, err
		}
		agg.Expression = inner
	}
	return agg, nil
}

// isWildcardExpr reports whether an aggregate argument is the * wildcard.
func isWildcardExpr(e *Expression) bool {
	return e.Kind == ExprKindTerm && e.Term != nil &&
		(e.Term.Kind == "wildcard" || e.Term.Value == "*")
}

// selectedAggregates extracts the aggregate select items as variable to
// aggregate assignments.
func selectedAggregates(items []SelectItem) ([]AggregateBinding, error) {
	var out []AggregateBinding
	for i := range items {
		item := &items[i]
		if item.Expression == nil || item.Expression.Kind != ExprKindAggregate {
			continue
		}
		if item.Variable == "" {
			return nil, translateErrorf("SELECT", "aggregate expression needs an AS alias")
		}
		agg, err := translateAggregate(item.Expression)
		if err != nil {
			return nil, err
		}
		out = append(out, AggregateBinding{
			Variable:  strings.TrimPrefix(item.Variable, "?"),
			Aggregate: agg,
		})
	}
	return out, nil
}

// selectedVariables returns the projected variable names in selection
// order, and whether the query selects explicit variables at all (false
// for SELECT *).
func selectedVariables(items []SelectItem) ([]string, bool) {
	var out []string
	for i := range items {
		item := &items[i]
		if item.Wildcard {
			return nil, false
		}
		if item.Variable != "" {
			out = append(out, strings.TrimPrefix(item.Variable, "?"))
		}
	}
	return out, len(out) > 0
}
