package triple

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Binding is an insertion-ordered assignment of query variables to terms.
// Variable names are stored without the "?" sigil.
type Binding struct {
	names  []string
	values map[string]Term
}

// NewBinding creates an empty binding.
func NewBinding() *Binding {
	return &Binding{values: make(map[string]Term)}
}

// Set assigns a term to a variable. A variable set for the first time is
// appended to the insertion order; re-setting keeps its position.
func (b *Binding) Set(name string, term Term) {
	name = strings.TrimPrefix(name, "?")
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = term
}

// Get returns the term bound to a variable.
func (b *Binding) Get(name string) (Term, bool) {
	term, ok := b.values[strings.TrimPrefix(name, "?")]
	return term, ok
}

// Has reports whether the variable is bound.
func (b *Binding) Has(name string) bool {
	_, ok := b.values[strings.TrimPrefix(name, "?")]
	return ok
}

// Vars returns the bound variable names in insertion order.
func (b *Binding) Vars() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of bound variables.
func (b *Binding) Len() int { return len(b.names) }

// Clone returns an independent copy preserving insertion order.
func (b *Binding) Clone() *Binding {
	clone := &Binding{
		names:  make([]string, len(b.names)),
		values: make(map[string]Term, len(b.values)),
	}
	copy(clone.names, b.names)
	for name, term := range b.values {
		clone.values[name] = term
	}
	return clone
}

// Compatible reports whether both bindings agree on every shared variable.
func (b *Binding) Compatible(other *Binding) bool {
	for name, term := range b.values {
		if otherTerm, ok := other.values[name]; ok && !term.Equal(otherTerm) {
			return false
		}
	}
	return true
}

// Merge natural-joins two bindings: the result carries b's variables
// followed by other's new ones. Returns false when a shared variable
// disagrees.
func (b *Binding) Merge(other *Binding) (*Binding, bool) {
	if !b.Compatible(other) {
		return nil, false
	}
	merged := b.Clone()
	for _, name := range other.names {
		merged.Set(name, other.values[name])
	}
	return merged, true
}

// Project returns a new binding restricted to the named variables, in the
// requested order. Unbound names are skipped.
func (b *Binding) Project(names []string) *Binding {
	projected := NewBinding()
	for _, name := range names {
		if term, ok := b.Get(name); ok {
			projected.Set(name, term)
		}
	}
	return projected
}

// Key returns a canonical serialized form, stable across insertion orders,
// used for DISTINCT deduplication.
func (b *Binding) Key() string {
	names := make([]string, len(b.names))
	copy(names, b.names)
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(b.values[name].Key())
	}
	return sb.String()
}

// termJSON is the wire form of a term inside a binding.
type termJSON struct {
	Type     TermType `json:"type"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
	Language string   `json:"language,omitempty"`
}

// MarshalJSON encodes the binding as an object keyed by variable name.
func (b *Binding) MarshalJSON() ([]byte, error) {
	out := make(map[string]termJSON, len(b.names))
	for name, term := range b.values {
		tj := termJSON{Type: term.Type(), Value: term.Text()}
		if lit, ok := term.(Literal); ok {
			switch lit.Value.(type) {
			case float64:
				tj.Datatype = "number"
			case bool:
				tj.Datatype = "boolean"
			case time.Time:
				tj.Datatype = "date"
			default:
				tj.Datatype = lit.Datatype
				tj.Language = lit.Language
			}
		}
		out[name] = tj
	}
	return json.Marshal(out)
}
