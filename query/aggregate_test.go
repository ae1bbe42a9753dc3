package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semdex/triple"
)

// valueBindings builds one binding per term, all under the same variable.
func valueBindings(name string, values ...triple.Term) []*triple.Binding {
	out := make([]*triple.Binding, 0, len(values))
	for _, v := range values {
		b := triple.NewBinding()
		b.Set(name, v)
		out = append(out, b)
	}
	return out
}

func TestComputeAggregate_CountWholeBindings(t *testing.T) {
	bindings := valueBindings("v", num(1), num(2), num(2))

	agg := &AggregateExpr{Kind: "count"}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, num(3).Equal(got))

	distinct := &AggregateExpr{Kind: "count", Distinct: true}
	got, ok = computeAggregate(distinct, bindings)
	require.True(t, ok)
	assert.True(t, num(2).Equal(got), "distinct count collapses identical bindings")
}

func TestComputeAggregate_CountExpressionSkipsUnbound(t *testing.T) {
	bindings := valueBindings("v", num(1), num(2))
	bindings = append(bindings, triple.NewBinding()) // v unbound here

	agg := &AggregateExpr{Kind: "count", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, num(2).Equal(got))
}

func TestComputeAggregate_SumSkipsNonNumeric(t *testing.T) {
	bindings := valueBindings("v", num(1), str("oops"), num(2.5))

	agg := &AggregateExpr{Kind: "sum", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, num(3.5).Equal(got))
}

func TestComputeAggregate_SumOfNothingIsZero(t *testing.T) {
	agg := &AggregateExpr{Kind: "sum", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, nil)
	require.True(t, ok)
	assert.True(t, num(0).Equal(got))
}

func TestComputeAggregate_Avg(t *testing.T) {
	bindings := valueBindings("v", num(2), num(4))

	agg := &AggregateExpr{Kind: "avg", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, num(3).Equal(got))
}

func TestComputeAggregate_MinMax(t *testing.T) {
	bindings := valueBindings("v", num(10), num(2), num(7))

	minAgg := &AggregateExpr{Kind: "min", Expression: varExpr("v")}
	got, ok := computeAggregate(minAgg, bindings)
	require.True(t, ok)
	assert.True(t, num(2).Equal(got))

	maxAgg := &AggregateExpr{Kind: "max", Expression: varExpr("v")}
	got, ok = computeAggregate(maxAgg, bindings)
	require.True(t, ok)
	assert.True(t, num(10).Equal(got))
}

func TestComputeAggregate_MinOfNothingStaysUnbound(t *testing.T) {
	agg := &AggregateExpr{Kind: "min", Expression: varExpr("v")}
	_, ok := computeAggregate(agg, nil)
	assert.False(t, ok)
}

func TestComputeAggregate_Sample(t *testing.T) {
	bindings := valueBindings("v", str("first"), str("second"))

	agg := &AggregateExpr{Kind: "sample", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, str("first").Equal(got))
}

func TestComputeAggregate_GroupConcat(t *testing.T) {
	bindings := valueBindings("v", str("a"), str("b"), str("a"))

	agg := &AggregateExpr{Kind: "group_concat", Expression: varExpr("v")}
	got, ok := computeAggregate(agg, bindings)
	require.True(t, ok)
	assert.True(t, str("a,b,a").Equal(got), "default separator is a comma")

	custom := &AggregateExpr{Kind: "group_concat", Expression: varExpr("v"), Separator: " | "}
	got, ok = computeAggregate(custom, bindings)
	require.True(t, ok)
	assert.True(t, str("a | b | a").Equal(got))

	distinct := &AggregateExpr{Kind: "group_concat", Expression: varExpr("v"), Distinct: true}
	got, ok = computeAggregate(distinct, bindings)
	require.True(t, ok)
	assert.True(t, str("a,b").Equal(got), "distinct keeps first occurrences in order")
}

func TestComputeAggregate_UnknownKindStaysUnbound(t *testing.T) {
	agg := &AggregateExpr{Kind: "median", Expression: varExpr("v")}
	_, ok := computeAggregate(agg, valueBindings("v", num(1)))
	assert.False(t, ok)
}
