package triple

import (
	"errors"
	"fmt"
)

// ErrInvalidTriple indicates a triple violating the data model: a missing
// slot, or a literal in subject or predicate position.
var ErrInvalidTriple = errors.New("invalid triple")

// Triple is a (subject, predicate, object) statement, the unit of stored
// fact. Subject and predicate are never literals.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// New creates a validated triple.
func New(subject, predicate, object Term) (Triple, error) {
	t := Triple{Subject: subject, Predicate: predicate, Object: object}
	if err := t.Validate(); err != nil {
		return Triple{}, err
	}
	return t, nil
}

// Validate checks the triple invariants.
func (t Triple) Validate() error {
	if t.Subject == nil || t.Predicate == nil || t.Object == nil {
		return fmt.Errorf("%w: missing term", ErrInvalidTriple)
	}
	if t.Subject.Type() == TermLiteral {
		return fmt.Errorf("%w: literal subject %s", ErrInvalidTriple, t.Subject.Key())
	}
	if t.Predicate.Type() == TermLiteral {
		return fmt.Errorf("%w: literal predicate %s", ErrInvalidTriple, t.Predicate.Key())
	}
	return nil
}

// Key returns the canonical form of the whole triple.
func (t Triple) Key() string {
	return t.Subject.Key() + " " + t.Predicate.Key() + " " + t.Object.Key()
}

// Equal reports whether both triples hold equal terms in every slot.
func (t Triple) Equal(other Triple) bool {
	return t.Subject.Equal(other.Subject) &&
		t.Predicate.Equal(other.Predicate) &&
		t.Object.Equal(other.Object)
}

func (t Triple) String() string { return t.Key() }
