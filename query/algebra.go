package query

import (
	"github.com/c360studio/semdex/triple"
)

// OperationType discriminates algebra operations.
type OperationType string

// Algebra operation types.
const (
	OpBGP      OperationType = "bgp"
	OpFilter   OperationType = "filter"
	OpJoin     OperationType = "join"
	OpLeftJoin OperationType = "leftjoin"
	OpUnion    OperationType = "union"
	OpGroup    OperationType = "group"
	OpProject  OperationType = "project"
	OpDistinct OperationType = "distinct"
	OpOrderBy  OperationType = "orderby"
	OpSlice    OperationType = "slice"
)

// Operation is one node of the algebra tree a query compiles to. Trees are
// immutable once built; each query gets a fresh tree.
type Operation interface {
	Type() OperationType
}

// PatternTriple is a triple pattern whose slots may be variables.
type PatternTriple struct {
	Subject   triple.Term
	Predicate triple.Term
	Object    triple.Term
}

// BGP is a basic graph pattern: a set of triple patterns evaluated
// together against the index. An empty BGP yields one empty binding.
type BGP struct {
	Triples []PatternTriple
}

// Type returns OpBGP.
func (*BGP) Type() OperationType { return OpBGP }

// Filter keeps input bindings whose expression evaluates to true.
type Filter struct {
	Expression Expr
	Input      Operation
}

// Type returns OpFilter.
func (*Filter) Type() OperationType { return OpFilter }

// Join natural-joins two binding streams on their shared variables.
type Join struct {
	Left  Operation
	Right Operation
}

// Type returns OpJoin.
func (*Join) Type() OperationType { return OpJoin }

// LeftJoin joins like Join but preserves unmatched left bindings. An
// optional expression filters right-side matches before the fallback.
type LeftJoin struct {
	Left       Operation
	Right      Operation
	Expression Expr // may be nil
}

// Type returns OpLeftJoin.
func (*LeftJoin) Type() OperationType { return OpLeftJoin }

// Union concatenates two binding streams without deduplication.
type Union struct {
	Left  Operation
	Right Operation
}

// Type returns OpUnion.
func (*Union) Type() OperationType { return OpUnion }

// AggregateBinding assigns an aggregate result to a variable.
type AggregateBinding struct {
	Variable  string
	Aggregate *AggregateExpr
}

// Group partitions bindings by the group variables and computes the
// requested aggregates per partition.
type Group struct {
	Variables  []string
	Aggregates []AggregateBinding
	Input      Operation
}

// Type returns OpGroup.
func (*Group) Type() OperationType { return OpGroup }

// Project restricts bindings to the named variables, in order.
type Project struct {
	Variables []string
	Input     Operation
}

// Type returns OpProject.
func (*Project) Type() OperationType { return OpProject }

// Distinct deduplicates bindings by canonical form, keeping first-seen
// order.
type Distinct struct {
	Input Operation
}

// Type returns OpDistinct.
func (*Distinct) Type() OperationType { return OpDistinct }

// Comparator is one ORDER BY key.
type Comparator struct {
	Expression Expr
	Descending bool
}

// OrderBy stable-sorts bindings by its comparator list.
type OrderBy struct {
	Comparators []Comparator
	Input       Operation
}

// Type returns OpOrderBy.
func (*OrderBy) Type() OperationType { return OpOrderBy }

// Slice applies OFFSET then LIMIT to the binding sequence.
type Slice struct {
	Limit  *int
	Offset *int
	Input  Operation
}

// Type returns OpSlice.
func (*Slice) Type() OperationType { return OpSlice }

// ExprType discriminates algebra expressions.
type ExprType string

// Algebra expression types.
const (
	ExprVariable   ExprType = "variable"
	ExprLiteral    ExprType = "literal"
	ExprComparison ExprType = "comparison"
	ExprLogical    ExprType = "logical"
	ExprFunction   ExprType = "function"
	ExprAggregate  ExprType = "aggregate"
)

// Expr is one node of a translated expression tree.
type Expr interface {
	ExprType() ExprType
}

// VariableExpr references a bound variable.
type VariableExpr struct {
	Name string
}

// ExprType returns ExprVariable.
func (*VariableExpr) ExprType() ExprType { return ExprVariable }

// LiteralExpr holds a constant term (a literal or an IRI).
type LiteralExpr struct {
	Term triple.Term
}

// ExprType returns ExprLiteral.
func (*LiteralExpr) ExprType() ExprType { return ExprLiteral }

// ComparisonExpr applies =, !=, <, >, <=, or >=.
type ComparisonExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// ExprType returns ExprComparison.
func (*ComparisonExpr) ExprType() ExprType { return ExprComparison }

// LogicalExpr applies &&, ||, or !.
type LogicalExpr struct {
	Op       string
	Operands []Expr
}

// ExprType returns ExprLogical.
func (*LogicalExpr) ExprType() ExprType { return ExprLogical }

// FunctionExpr applies a named function.
type FunctionExpr struct {
	Name string
	Args []Expr
}

// ExprType returns ExprFunction.
func (*FunctionExpr) ExprType() ExprType { return ExprFunction }

// AggregateExpr computes an aggregate over a group. Kind is lowercase
// (count, sum, avg, min, max, sample, group_concat). A nil Expression
// means count over whole bindings.
type AggregateExpr struct {
	Kind       string
	Expression Expr
	Distinct   bool
	Separator  string
}

// ExprType returns ExprAggregate.
func (*AggregateExpr) ExprType() ExprType { return ExprAggregate }
