package query

import (
	"fmt"
	"sort"

	"github.com/c360studio/semdex/index"
	"github.com/c360studio/semdex/triple"
)

// Evaluator executes algebra trees against a triple index. It holds no
// per-query state: Evaluate may be called any number of times, on the
// same tree or different ones, and each call computes a fresh result from
// the index's current contents.
type Evaluator struct {
	index *index.TripleIndex
}

// NewEvaluator creates an evaluator over the given index.
func NewEvaluator(idx *index.TripleIndex) *Evaluator {
	return &Evaluator{index: idx}
}

// Evaluate runs an operation tree and returns the resulting bindings.
// Expression errors inside filters, joins, and aggregates drop the
// affected binding rather than failing the query; only a malformed tree
// returns an error.
func (ev *Evaluator) Evaluate(op Operation) ([]*triple.Binding, error) {
	switch node := op.(type) {
	case *BGP:
		return ev.evalBGP(node), nil
	case *Filter:
		return ev.evalFilter(node)
	case *Join:
		return ev.evalJoin(node)
	case *LeftJoin:
		return ev.evalLeftJoin(node)
	case *Union:
		return ev.evalUnion(node)
	case *Group:
		return ev.evalGroup(node)
	case *Project:
		return ev.evalProject(node)
	case *Distinct:
		return ev.evalDistinct(node)
	case *OrderBy:
		return ev.evalOrderBy(node)
	case *Slice:
		return ev.evalSlice(node)
	case nil:
		return nil, fmt.Errorf("evaluate: nil operation")
	default:
		return nil, fmt.Errorf("evaluate: unsupported operation %q", op.Type())
	}
}

// evalBGP matches the pattern triples against the index, accumulating
// bindings pattern by pattern. An empty pattern list yields one empty
// binding, the unit of join. Patterns are reordered greedily so that the
// most selective pattern, the one with the most bound slots given what
// earlier patterns bind, runs first.
func (ev *Evaluator) evalBGP(node *BGP) []*triple.Binding {
	bindings := []*triple.Binding{triple.NewBinding()}
	if len(node.Triples) == 0 {
		return bindings
	}

	for _, pattern := range orderPatterns(node.Triples) {
		var next []*triple.Binding
		for _, b := range bindings {
			s := resolveSlot(pattern.Subject, b)
			p := resolveSlot(pattern.Predicate, b)
			o := resolveSlot(pattern.Object, b)
			for _, t := range ev.index.Match(s, p, o) {
				if extended, ok := extendBinding(b, pattern, t); ok {
					next = append(next, extended)
				}
			}
		}
		bindings = next
		if len(bindings) == 0 {
			break
		}
	}
	return bindings
}

// orderPatterns sorts pattern triples so that patterns sharing variables
// with already-placed patterns, and patterns with more constant slots,
// run earlier. The result order only affects intermediate sizes, never
// the final bindings.
func orderPatterns(patterns []PatternTriple) []PatternTriple {
	remaining := make([]PatternTriple, len(patterns))
	copy(remaining, patterns)

	bound := make(map[string]bool)
	ordered := make([]PatternTriple, 0, len(remaining))
	for len(remaining) > 0 {
		best := 0
		bestScore := -1
		for i, p := range remaining {
			score := patternScore(p, bound)
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
		chosen := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		ordered = append(ordered, chosen)
		for _, name := range patternVariables(chosen) {
			bound[name] = true
		}
	}
	return ordered
}

// patternScore counts the slots of a pattern that are constants or
// variables bound by earlier patterns.
func patternScore(p PatternTriple, bound map[string]bool) int {
	score := 0
	for _, slot := range []triple.Term{p.Subject, p.Predicate, p.Object} {
		v, isVar := slot.(triple.Variable)
		if !isVar || bound[v.Name] {
			score++
		}
	}
	return score
}

// patternVariables lists the variable names a pattern binds.
func patternVariables(p PatternTriple) []string {
	var names []string
	for _, slot := range []triple.Term{p.Subject, p.Predicate, p.Object} {
		if v, ok := slot.(triple.Variable); ok {
			names = append(names, v.Name)
		}
	}
	return names
}

// resolveSlot substitutes a bound variable with its value; unbound
// variables stay as wildcards for the index.
func resolveSlot(slot triple.Term, b *triple.Binding) triple.Term {
	if v, ok := slot.(triple.Variable); ok {
		if term, bound := b.Get(v.Name); bound {
			return term
		}
	}
	return slot
}

// extendBinding extends a binding with the variable assignments implied by
// matching a pattern against a concrete triple. A repeated variable whose
// slots matched different terms makes the extension fail.
func extendBinding(b *triple.Binding, p PatternTriple, t triple.Triple) (*triple.Binding, bool) {
	out := b.Clone()
	slots := [3]struct {
		pattern triple.Term
		actual  triple.Term
	}{
		{p.Subject, t.Subject},
		{p.Predicate, t.Predicate},
		{p.Object, t.Object},
	}
	for _, slot := range slots {
		v, isVar := slot.pattern.(triple.Variable)
		if !isVar {
			continue
		}
		if existing, bound := out.Get(v.Name); bound {
			if !existing.Equal(slot.actual) {
				return nil, false
			}
			continue
		}
		out.Set(v.Name, slot.actual)
	}
	return out, true
}

// evalFilter keeps bindings whose expression evaluates to true. A binding
// whose expression errors, an unbound variable or a type mismatch, is
// dropped silently.
func (ev *Evaluator) evalFilter(node *Filter) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}
	out := make([]*triple.Binding, 0, len(input))
	for _, b := range input {
		keep, err := evalBool(node.Expression, b)
		if err != nil || !keep {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// evalJoin natural-joins the two sides: every compatible left/right pair
// merges into one output binding.
func (ev *Evaluator) evalJoin(node *Join) ([]*triple.Binding, error) {
	left, err := ev.Evaluate(node.Left)
	if err != nil {
		return nil, err
	}
	if len(left) == 0 {
		return nil, nil
	}
	right, err := ev.Evaluate(node.Right)
	if err != nil {
		return nil, err
	}

	var out []*triple.Binding
	for _, l := range left {
		for _, r := range right {
			if merged, ok := l.Merge(r); ok {
				out = append(out, merged)
			}
		}
	}
	return out, nil
}

// evalLeftJoin joins but preserves left bindings with no surviving match.
// The optional expression filters merged pairs; an expression error counts
// as no match, so the left binding still comes through unextended.
func (ev *Evaluator) evalLeftJoin(node *LeftJoin) ([]*triple.Binding, error) {
	left, err := ev.Evaluate(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.Evaluate(node.Right)
	if err != nil {
		return nil, err
	}

	var out []*triple.Binding
	for _, l := range left {
		matched := false
		for _, r := range right {
			merged, ok := l.Merge(r)
			if !ok {
				continue
			}
			if node.Expression != nil {
				keep, err := evalBool(node.Expression, merged)
				if err != nil || !keep {
					continue
				}
			}
			out = append(out, merged)
			matched = true
		}
		if !matched {
			out = append(out, l)
		}
	}
	return out, nil
}

// evalUnion concatenates both sides, left first. No deduplication; wrap
// in Distinct for set semantics.
func (ev *Evaluator) evalUnion(node *Union) ([]*triple.Binding, error) {
	left, err := ev.Evaluate(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.Evaluate(node.Right)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// evalGroup partitions the input by the group variables and computes one
// output binding per partition, carrying the group values plus the
// aggregate results. With no group variables everything lands in a single
// partition, which exists even for empty input.
func (ev *Evaluator) evalGroup(node *Group) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}

	type partition struct {
		key      []triple.Term
		bindings []*triple.Binding
	}
	var order []string
	groups := make(map[string]*partition)

	for _, b := range input {
		keyTerms := make([]triple.Term, len(node.Variables))
		key := ""
		for i, name := range node.Variables {
			if term, ok := b.Get(name); ok {
				keyTerms[i] = term
				key += term.Key()
			}
			key += "|"
		}
		g, ok := groups[key]
		if !ok {
			g = &partition{key: keyTerms}
			groups[key] = g
			order = append(order, key)
		}
		g.bindings = append(g.bindings, b)
	}

	if len(groups) == 0 && len(node.Variables) == 0 {
		groups[""] = &partition{key: nil}
		order = append(order, "")
	}

	out := make([]*triple.Binding, 0, len(order))
	for _, key := range order {
		g := groups[key]
		result := triple.NewBinding()
		for i, name := range node.Variables {
			if i < len(g.key) && g.key[i] != nil {
				result.Set(name, g.key[i])
			}
		}
		for _, agg := range node.Aggregates {
			value, ok := computeAggregate(agg.Aggregate, g.bindings)
			if ok {
				result.Set(agg.Variable, value)
			}
		}
		out = append(out, result)
	}
	return out, nil
}

// evalProject narrows each binding to the projected variables, keeping
// the projection order.
func (ev *Evaluator) evalProject(node *Project) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}
	out := make([]*triple.Binding, 0, len(input))
	for _, b := range input {
		out = append(out, b.Project(node.Variables))
	}
	return out, nil
}

// evalDistinct drops duplicate bindings by canonical form, keeping the
// first occurrence's position.
func (ev *Evaluator) evalDistinct(node *Distinct) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(input))
	out := make([]*triple.Binding, 0, len(input))
	for _, b := range input {
		key := b.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out, nil
}

// evalOrderBy stable-sorts the input by the comparator list. A comparator
// expression that errors on a binding sorts that binding as unbound,
// before everything bound.
func (ev *Evaluator) evalOrderBy(node *OrderBy) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}

	keys := make([][]triple.Term, len(input))
	for i, b := range input {
		keys[i] = make([]triple.Term, len(node.Comparators))
		for j := range node.Comparators {
			term, err := evalExpr(node.Comparators[j].Expression, b)
			if err != nil {
				continue
			}
			keys[i][j] = term
		}
	}

	indices := make([]int, len(input))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ka, kb := keys[indices[a]], keys[indices[b]]
		for j := range node.Comparators {
			c := sortCompare(ka[j], kb[j])
			if node.Comparators[j].Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	out := make([]*triple.Binding, len(input))
	for i, idx := range indices {
		out[i] = input[idx]
	}
	return out, nil
}

// evalSlice applies OFFSET before LIMIT. Out-of-range values clamp to an
// empty result rather than erroring.
func (ev *Evaluator) evalSlice(node *Slice) ([]*triple.Binding, error) {
	input, err := ev.Evaluate(node.Input)
	if err != nil {
		return nil, err
	}

	start := 0
	if node.Offset != nil {
		start = *node.Offset
	}
	if start < 0 {
		start = 0
	}
	if start >= len(input) {
		return nil, nil
	}
	input = input[start:]

	if node.Limit != nil {
		limit := *node.Limit
		if limit < 0 {
			limit = 0
		}
		if limit < len(input) {
			input = input[:limit]
		}
	}
	return input, nil
}
