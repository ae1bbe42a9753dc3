package query

import (
	"strings"

	"github.com/c360studio/semdex/triple"
)

// defaultConcatSeparator joins group_concat values when the query names
// no separator.
const defaultConcatSeparator = ","

// computeAggregate evaluates one aggregate over a partition's bindings.
// The boolean reports whether the result variable should be bound at all:
// min, max, and sample of an empty value set stay unbound, while count
// and sum of nothing are 0.
func computeAggregate(agg *AggregateExpr, bindings []*triple.Binding) (triple.Term, bool) {
	if agg.Kind == "count" && agg.Expression == nil {
		return triple.NewNumberLiteral(float64(countBindings(agg, bindings))), true
	}

	values := collectValues(agg, bindings)

	switch agg.Kind {
	case "count":
		return triple.NewNumberLiteral(float64(len(values))), true

	case "sum":
		total := 0.0
		for _, v := range values {
			if n, err := numberValue(v); err == nil {
				total += n
			}
		}
		return triple.NewNumberLiteral(total), true

	case "avg":
		total := 0.0
		count := 0
		for _, v := range values {
			if n, err := numberValue(v); err == nil {
				total += n
				count++
			}
		}
		if count == 0 {
			return triple.NewNumberLiteral(0), true
		}
		return triple.NewNumberLiteral(total / float64(count)), true

	case "min":
		return extremeValue(values, -1)

	case "max":
		return extremeValue(values, 1)

	case "sample":
		if len(values) == 0 {
			return nil, false
		}
		return values[0], true

	case "group_concat":
		sep := agg.Separator
		if sep == "" {
			sep = defaultConcatSeparator
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, v.Text())
		}
		return triple.NewStringLiteral(strings.Join(parts, sep)), true

	default:
		return nil, false
	}
}

// countBindings counts whole bindings, for COUNT(*). With DISTINCT the
// count is over canonical binding forms.
func countBindings(agg *AggregateExpr, bindings []*triple.Binding) int {
	if !agg.Distinct {
		return len(bindings)
	}
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		seen[b.Key()] = true
	}
	return len(seen)
}

// collectValues evaluates the aggregate's expression across the
// partition, skipping bindings where it errors. DISTINCT deduplicates by
// canonical form, first occurrence wins.
func collectValues(agg *AggregateExpr, bindings []*triple.Binding) []triple.Term {
	values := make([]triple.Term, 0, len(bindings))
	var seen map[string]bool
	if agg.Distinct {
		seen = make(map[string]bool, len(bindings))
	}
	for _, b := range bindings {
		term, err := evalExpr(agg.Expression, b)
		if err != nil {
			continue
		}
		if seen != nil {
			key := term.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, term)
	}
	return values
}

// extremeValue returns the minimum (direction -1) or maximum (direction 1)
// of the value set under the sort order, unbound when the set is empty.
func extremeValue(values []triple.Term, direction int) (triple.Term, bool) {
	if len(values) == 0 {
		return nil, false
	}
	best := values[0]
	for _, v := range values[1:] {
		if sortCompare(v, best)*direction > 0 {
			best = v
		}
	}
	return best, true
}
