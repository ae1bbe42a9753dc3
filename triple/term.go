// Package triple defines the term, triple, and binding value types that the
// index and query packages operate on.
package triple

import (
	"strconv"
	"strings"
	"time"
)

// TermType discriminates the kinds of Term.
type TermType string

// Term type values.
const (
	TermVariable TermType = "variable"
	TermIRI      TermType = "iri"
	TermLiteral  TermType = "literal"
	TermBlank    TermType = "blank"
)

// Term is an atomic value in a triple or query: a variable, IRI, literal,
// or blank node. Terms are immutable values; two terms are equal iff they
// have the same type and the same normalized value.
type Term interface {
	// Type returns the term kind.
	Type() TermType

	// Key returns the canonical string form, unique per distinct term.
	// Used for index keys, deduplication, and grouping.
	Key() string

	// Text returns the plain lexical form without any syntax decoration.
	Text() string

	// Equal reports whether the other term denotes the same value.
	Equal(other Term) bool
}

// Variable is a query variable such as ?status.
type Variable struct {
	Name string
}

// NewVariable creates a variable, stripping a leading "?" or "$" sigil.
func NewVariable(name string) Variable {
	name = strings.TrimPrefix(name, "?")
	name = strings.TrimPrefix(name, "$")
	return Variable{Name: name}
}

// Type returns TermVariable.
func (v Variable) Type() TermType { return TermVariable }

// Key returns the canonical form "?name".
func (v Variable) Key() string { return "?" + v.Name }

// Text returns the variable name without the sigil.
func (v Variable) Text() string { return v.Name }

// Equal reports whether other is the same variable.
func (v Variable) Equal(other Term) bool {
	o, ok := other.(Variable)
	return ok && o.Name == v.Name
}

func (v Variable) String() string { return v.Key() }

// IRI is a resource identifier. The value may be a full IRI or a dotted
// predicate name from the vocabulary packages.
type IRI struct {
	Value string
}

// NewIRI creates an IRI term.
func NewIRI(value string) IRI { return IRI{Value: value} }

// Type returns TermIRI.
func (i IRI) Type() TermType { return TermIRI }

// Key returns the canonical form "<value>".
func (i IRI) Key() string { return "<" + i.Value + ">" }

// Text returns the raw IRI value.
func (i IRI) Text() string { return i.Value }

// Equal reports whether other is the same IRI.
func (i IRI) Equal(other Term) bool {
	o, ok := other.(IRI)
	return ok && o.Value == i.Value
}

func (i IRI) String() string { return i.Key() }

// Blank is a blank node with a local label.
type Blank struct {
	Label string
}

// NewBlank creates a blank node term.
func NewBlank(label string) Blank { return Blank{Label: label} }

// Type returns TermBlank.
func (b Blank) Type() TermType { return TermBlank }

// Key returns the canonical form "_:label".
func (b Blank) Key() string { return "_:" + b.Label }

// Text returns the blank node label.
func (b Blank) Text() string { return b.Label }

// Equal reports whether other is the same blank node.
func (b Blank) Equal(other Term) bool {
	o, ok := other.(Blank)
	return ok && o.Label == b.Label
}

func (b Blank) String() string { return b.Key() }

// Literal is a typed data value. Value holds one of string, float64, bool,
// or time.Time. Datatype and Language are only set for string values;
// parsing a numeric, boolean, or date literal normalizes the datatype away.
type Literal struct {
	Value    any
	Datatype string
	Language string
}

// NewStringLiteral creates a plain string literal.
func NewStringLiteral(value string) Literal { return Literal{Value: value} }

// NewLangLiteral creates a language-tagged string literal.
func NewLangLiteral(value, language string) Literal {
	return Literal{Value: value, Language: language}
}

// NewNumberLiteral creates a numeric literal.
func NewNumberLiteral(value float64) Literal { return Literal{Value: value} }

// NewBoolLiteral creates a boolean literal.
func NewBoolLiteral(value bool) Literal { return Literal{Value: value} }

// NewDateLiteral creates a date literal normalized to UTC.
func NewDateLiteral(value time.Time) Literal {
	return Literal{Value: value.UTC()}
}

// NewTypedLiteral creates a literal from a lexical form and datatype,
// parsing numeric and boolean datatypes to their native values. Lexical
// forms that fail to parse stay string literals with the datatype kept.
func NewTypedLiteral(lexical, datatype string) Literal {
	switch datatypeKind(datatype) {
	case "number":
		if f, err := strconv.ParseFloat(lexical, 64); err == nil {
			return NewNumberLiteral(f)
		}
	case "boolean":
		if b, err := strconv.ParseBool(lexical); err == nil {
			return NewBoolLiteral(b)
		}
	case "date":
		if t, err := parseDate(lexical); err == nil {
			return NewDateLiteral(t)
		}
	}
	return Literal{Value: lexical, Datatype: datatype}
}

// Type returns TermLiteral.
func (l Literal) Type() TermType { return TermLiteral }

// Key returns the canonical form: the quoted lexical value plus a language
// tag or datatype marker. Parsed values carry a normalized kind marker so
// "3"^^integer and "3.0"^^decimal collapse to the same key.
func (l Literal) Key() string {
	switch v := l.Value.(type) {
	case float64:
		return strconv.Quote(formatNumber(v)) + "^^<number>"
	case bool:
		return strconv.Quote(strconv.FormatBool(v)) + "^^<boolean>"
	case time.Time:
		return strconv.Quote(v.UTC().Format(time.RFC3339)) + "^^<date>"
	case string:
		key := strconv.Quote(v)
		if l.Language != "" {
			return key + "@" + strings.ToLower(l.Language)
		}
		if l.Datatype != "" {
			return key + "^^<" + l.Datatype + ">"
		}
		return key
	default:
		return strconv.Quote(l.Text())
	}
}

// Text returns the bare lexical value.
func (l Literal) Text() string {
	switch v := l.Value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal reports whether other is a literal with the same normalized value.
func (l Literal) Equal(other Term) bool {
	o, ok := other.(Literal)
	if !ok {
		return false
	}
	return o.Key() == l.Key()
}

func (l Literal) String() string { return l.Key() }

// Number returns the numeric value and whether the literal is numeric.
func (l Literal) Number() (float64, bool) {
	f, ok := l.Value.(float64)
	return f, ok
}

// Bool returns the boolean value and whether the literal is boolean.
func (l Literal) Bool() (bool, bool) {
	b, ok := l.Value.(bool)
	return b, ok
}

// Date returns the time value and whether the literal is a date.
func (l Literal) Date() (time.Time, bool) {
	t, ok := l.Value.(time.Time)
	return t, ok
}

// formatNumber renders a float without a trailing ".0" so integers stay
// integers in canonical forms.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// datatypeKind maps a datatype IRI or bare name to a normalized kind.
func datatypeKind(datatype string) string {
	name := datatype
	if idx := strings.LastIndexAny(name, "#/"); idx >= 0 {
		name = name[idx+1:]
	}
	switch strings.ToLower(name) {
	case "integer", "int", "long", "short", "byte", "decimal", "double", "float",
		"nonnegativeinteger", "positiveinteger", "negativeinteger",
		"nonpositiveinteger", "unsignedint", "unsignedlong", "number":
		return "number"
	case "boolean", "bool":
		return "boolean"
	case "date", "datetime", "datetimestamp":
		return "date"
	default:
		return ""
	}
}

// dateFormats are accepted lexical date layouts, most specific first.
var dateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses a lexical date in any accepted layout.
func parseDate(lexical string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, lexical)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
