// Package query compiles parsed query ASTs into algebra trees and
// evaluates them against the triple index.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The query AST is the output of the external textual parser, consumed
// here as an opaque structure. DecodeQuery accepts its JSON wire form as
// produced by sparqljs-style parsers; the translator assumes the AST is
// already syntax-valid and performs structural translation only.

// Query is a parsed query.
type Query struct {
	Type      string           `json:"type"`
	QueryType string           `json:"queryType"`
	Variables []SelectItem     `json:"variables"`
	Where     []Pattern        `json:"where"`
	GroupBy   []GroupCondition `json:"group,omitempty"`
	OrderBy   []OrderCondition `json:"order,omitempty"`
	Distinct  bool             `json:"distinct,omitempty"`
	Limit     *int             `json:"limit,omitempty"`
	Offset    *int             `json:"offset,omitempty"`
}

// DecodeQuery parses the JSON wire form of a query AST.
func DecodeQuery(data []byte) (*Query, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode query ast: %w", err)
	}
	return &q, nil
}

// SelectItem is one projected item: a wildcard, a plain variable, or an
// expression aliased to a variable.
type SelectItem struct {
	Wildcard   bool
	Variable   string
	Expression *Expression
}

// UnmarshalJSON accepts "*", "?name", a term node, or an
// {expression, variable} pair.
func (s *SelectItem) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "*" {
			s.Wildcard = true
			return nil
		}
		s.Variable = strings.TrimPrefix(strings.TrimPrefix(str, "?"), "$")
		return nil
	}

	var raw struct {
		TermType   string          `json:"termType"`
		Kind       string          `json:"kind"`
		Value      string          `json:"value"`
		Expression *Expression     `json:"expression"`
		Variable   json.RawMessage `json:"variable"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode select item: %w", err)
	}

	if raw.Expression != nil {
		s.Expression = raw.Expression
		if len(raw.Variable) > 0 {
			var alias TermNode
			if err := json.Unmarshal(raw.Variable, &alias); err != nil {
				return fmt.Errorf("decode select alias: %w", err)
			}
			s.Variable = alias.Value
		}
		return nil
	}

	kind := raw.TermType
	if kind == "" {
		kind = raw.Kind
	}
	switch strings.ToLower(kind) {
	case "wildcard":
		s.Wildcard = true
	default:
		s.Variable = strings.TrimPrefix(strings.TrimPrefix(raw.Value, "?"), "$")
	}
	return nil
}

// PatternType discriminates WHERE clause elements.
type PatternType string

// Pattern element types.
const (
	PatternBGP      PatternType = "bgp"
	PatternFilter   PatternType = "filter"
	PatternOptional PatternType = "optional"
	PatternUnion    PatternType = "union"
	PatternGroup    PatternType = "group"
)

// Pattern is one element of a WHERE clause.
type Pattern struct {
	Type       PatternType
	Triples    []TriplePattern // bgp
	Expression *Expression     // filter
	Patterns   []Pattern       // optional, union, group
}

// UnmarshalJSON dispatches on the element's "type" field.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       string          `json:"type"`
		Triples    []TriplePattern `json:"triples"`
		Expression *Expression     `json:"expression"`
		Patterns   []Pattern       `json:"patterns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode pattern: %w", err)
	}
	p.Type = PatternType(strings.ToLower(raw.Type))
	p.Triples = raw.Triples
	p.Expression = raw.Expression
	p.Patterns = raw.Patterns
	return nil
}

// TriplePattern is one triple of a basic graph pattern.
type TriplePattern struct {
	Subject   *TermNode `json:"subject"`
	Predicate *TermNode `json:"predicate"`
	Object    *TermNode `json:"object"`
}

// TermKind discriminates AST term nodes.
type TermKind string

// Term node kinds.
const (
	TermKindVariable TermKind = "variable"
	TermKindIRI      TermKind = "iri"
	TermKindLiteral  TermKind = "literal"
	TermKindBlank    TermKind = "blank"
)

// TermNode is a term as the parser produced it. Unknown kinds survive
// decoding and are rejected by the translator.
type TermNode struct {
	Kind     TermKind
	Value    string
	Datatype string
	Language string
}

// UnmarshalJSON accepts sparqljs term nodes ("termType") and the plainer
// {"kind": ...} form. Datatype may be a string or a nested named node.
func (n *TermNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		TermType string          `json:"termType"`
		Kind     string          `json:"kind"`
		Value    string          `json:"value"`
		Datatype json.RawMessage `json:"datatype"`
		Language string          `json:"language"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode term node: %w", err)
	}

	kind := raw.TermType
	if kind == "" {
		kind = raw.Kind
	}
	switch strings.ToLower(kind) {
	case "variable":
		n.Kind = TermKindVariable
	case "namednode", "iri":
		n.Kind = TermKindIRI
	case "literal":
		n.Kind = TermKindLiteral
	case "blanknode", "blank":
		n.Kind = TermKindBlank
	default:
		n.Kind = TermKind(strings.ToLower(kind))
	}

	n.Value = raw.Value
	n.Language = raw.Language
	if len(raw.Datatype) > 0 {
		var s string
		if err := json.Unmarshal(raw.Datatype, &s); err == nil {
			n.Datatype = s
		} else {
			var nested struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(raw.Datatype, &nested); err != nil {
				return fmt.Errorf("decode term datatype: %w", err)
			}
			n.Datatype = nested.Value
		}
	}
	return nil
}

// ExprKind discriminates AST expression nodes.
type ExprKind string

// Expression node kinds.
const (
	ExprKindTerm      ExprKind = "term"
	ExprKindOperation ExprKind = "operation"
	ExprKindAggregate ExprKind = "aggregate"
)

// Expression is an AST expression: a term leaf, an operator application,
// or an aggregate.
type Expression struct {
	Kind ExprKind

	// Term leaf.
	Term *TermNode

	// Operation.
	Operator string
	Args     []Expression

	// Aggregate.
	Aggregation string
	Inner       *Expression
	Distinct    bool
	Separator   string
}

// UnmarshalJSON dispatches on "type" for operations and aggregates, and on
// the presence of a term kind for leaves.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string          `json:"type"`
		TermType    string          `json:"termType"`
		Kind        string          `json:"kind"`
		Operator    string          `json:"operator"`
		Function    json.RawMessage `json:"function"`
		Args        []Expression    `json:"args"`
		Aggregation string          `json:"aggregation"`
		Expression  *Expression     `json:"expression"`
		Distinct    bool            `json:"distinct"`
		Separator   string          `json:"separator"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode expression: %w", err)
	}

	switch strings.ToLower(raw.Type) {
	case "operation":
		e.Kind = ExprKindOperation
		e.Operator = raw.Operator
		e.Args = raw.Args
		return nil
	case "functioncall":
		e.Kind = ExprKindOperation
		e.Args = raw.Args
		e.Operator = functionName(raw.Function)
		return nil
	case "aggregate":
		e.Kind = ExprKindAggregate
		e.Aggregation = raw.Aggregation
		e.Inner = raw.Expression
		e.Distinct = raw.Distinct
		e.Separator = raw.Separator
		return nil
	case "":
		if raw.TermType != "" || raw.Kind != "" {
			var term TermNode
			if err := json.Unmarshal(data, &term); err != nil {
				return err
			}
			e.Kind = ExprKindTerm
			e.Term = &term
			return nil
		}
		e.Kind = ""
		return nil
	default:
		// Unknown expression type; the translator reports it.
		e.Kind = ExprKind(strings.ToLower(raw.Type))
		return nil
	}
}

// functionName extracts a function name given either a raw string or a
// named-node object.
func functionName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var nested struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Value
	}
	return ""
}

// GroupCondition is one GROUP BY entry.
type GroupCondition struct {
	Variable   string
	Expression *Expression
}

// UnmarshalJSON accepts "?var", a term node, or an {expression} wrapper.
func (g *GroupCondition) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		g.Variable = strings.TrimPrefix(strings.TrimPrefix(str, "?"), "$")
		return nil
	}

	var raw struct {
		TermType   string      `json:"termType"`
		Kind       string      `json:"kind"`
		Value      string      `json:"value"`
		Expression *Expression `json:"expression"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode group condition: %w", err)
	}

	if raw.Expression != nil {
		g.Expression = raw.Expression
		if raw.Expression.Kind == ExprKindTerm && raw.Expression.Term != nil &&
			raw.Expression.Term.Kind == TermKindVariable {
			g.Variable = raw.Expression.Term.Value
		}
		return nil
	}
	if raw.TermType != "" || raw.Kind != "" {
		g.Variable = raw.Value
	}
	return nil
}

// OrderCondition is one ORDER BY entry.
type OrderCondition struct {
	Expression Expression
	Descending bool
}

// UnmarshalJSON accepts {expression, descending} and the older
// {expression, order: "DESC"} form.
func (o *OrderCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Expression *Expression `json:"expression"`
		Descending bool        `json:"descending"`
		Order      string      `json:"order"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode order condition: %w", err)
	}
	if raw.Expression != nil {
		o.Expression = *raw.Expression
	}
	o.Descending = raw.Descending || strings.EqualFold(raw.Order, "desc")
	return nil
}
