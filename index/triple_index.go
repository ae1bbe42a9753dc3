// Package index provides the in-memory triple index and the secondary
// identifier index that queries run against.
package index

import (
	"github.com/c360studio/semdex/triple"
)

// TripleIndex stores a set of triples and answers pattern queries where
// each slot is either a bound term or a wildcard. Three complementary
// orderings (subject-first, predicate-first, object-first) make every
// single-wildcard pattern an index lookup rather than a scan.
//
// The index carries no internal locking: it assumes the single-writer,
// single-reader access pattern enforced by its caller. A multi-threaded
// host (the query service) adds its own synchronization.
type TripleIndex struct {
	// spo: subject → predicate → object → triple
	spo map[string]map[string]map[string]triple.Triple
	// pos: predicate → object → subject → triple
	pos map[string]map[string]map[string]triple.Triple
	// osp: object → subject → predicate → triple
	osp map[string]map[string]map[string]triple.Triple

	size int
}

// NewTripleIndex creates an empty triple index.
func NewTripleIndex() *TripleIndex {
	idx := &TripleIndex{}
	idx.Clear()
	return idx
}

// Clear removes every triple.
func (idx *TripleIndex) Clear() {
	idx.spo = make(map[string]map[string]map[string]triple.Triple)
	idx.pos = make(map[string]map[string]map[string]triple.Triple)
	idx.osp = make(map[string]map[string]map[string]triple.Triple)
	idx.size = 0
}

// Size returns the number of stored triples.
func (idx *TripleIndex) Size() int { return idx.size }

// Add inserts a triple if absent. It returns false for an exact duplicate
// or a triple violating the data model (nil slot, literal subject or
// predicate).
func (idx *TripleIndex) Add(t triple.Triple) bool {
	if err := t.Validate(); err != nil {
		return false
	}

	s, p, o := t.Subject.Key(), t.Predicate.Key(), t.Object.Key()
	if _, exists := idx.spo[s][p][o]; exists {
		return false
	}

	insert(idx.spo, s, p, o, t)
	insert(idx.pos, p, o, s, t)
	insert(idx.osp, o, s, p, t)
	idx.size++
	return true
}

// Remove deletes an exact triple. It returns false when the triple was not
// present.
func (idx *TripleIndex) Remove(t triple.Triple) bool {
	if t.Subject == nil || t.Predicate == nil || t.Object == nil {
		return false
	}

	s, p, o := t.Subject.Key(), t.Predicate.Key(), t.Object.Key()
	if _, exists := idx.spo[s][p][o]; !exists {
		return false
	}

	erase(idx.spo, s, p, o)
	erase(idx.pos, p, o, s)
	erase(idx.osp, o, s, p)
	idx.size--
	return true
}

// RemoveBySubject deletes every triple with the given subject and returns
// how many were removed. Together with re-adding a document's triples it
// implements whole-document replacement: afterwards no ordering retains an
// entry for the old triples.
func (idx *TripleIndex) RemoveBySubject(subject triple.Term) int {
	if subject == nil {
		return 0
	}

	s := subject.Key()
	byPredicate, ok := idx.spo[s]
	if !ok {
		return 0
	}

	removed := 0
	for p, byObject := range byPredicate {
		for o := range byObject {
			erase(idx.pos, p, o, s)
			erase(idx.osp, o, s, p)
			removed++
		}
	}
	delete(idx.spo, s)
	idx.size -= removed
	return removed
}

// Match returns every triple matching the pattern. A nil slot or a
// variable term is a wildcard. All eight bound/wildcard combinations run
// in O(result) against one of the three orderings.
func (idx *TripleIndex) Match(subject, predicate, object triple.Term) []triple.Triple {
	sBound, s := boundKey(subject)
	pBound, p := boundKey(predicate)
	oBound, o := boundKey(object)

	switch {
	case sBound && pBound && oBound:
		if t, ok := idx.spo[s][p][o]; ok {
			return []triple.Triple{t}
		}
		return nil
	case sBound && pBound:
		return collect(idx.spo[s][p])
	case sBound && oBound:
		return collect(idx.osp[o][s])
	case sBound:
		return collectNested(idx.spo[s])
	case pBound && oBound:
		return collect(idx.pos[p][o])
	case pBound:
		return collectNested(idx.pos[p])
	case oBound:
		return collectNested(idx.osp[o])
	default:
		out := make([]triple.Triple, 0, idx.size)
		for _, byPredicate := range idx.spo {
			for _, byObject := range byPredicate {
				for _, t := range byObject {
					out = append(out, t)
				}
			}
		}
		return out
	}
}

// Subjects returns the distinct subject terms currently indexed.
func (idx *TripleIndex) Subjects() []triple.Term {
	out := make([]triple.Term, 0, len(idx.spo))
	for _, byPredicate := range idx.spo {
		for _, byObject := range byPredicate {
			for _, t := range byObject {
				out = append(out, t.Subject)
				break
			}
			break
		}
	}
	return out
}

// boundKey reports whether a pattern slot is bound and its index key.
func boundKey(term triple.Term) (bool, string) {
	if term == nil || term.Type() == triple.TermVariable {
		return false, ""
	}
	return true, term.Key()
}

func insert(m map[string]map[string]map[string]triple.Triple, a, b, c string, t triple.Triple) {
	level2, ok := m[a]
	if !ok {
		level2 = make(map[string]map[string]triple.Triple)
		m[a] = level2
	}
	level3, ok := level2[b]
	if !ok {
		level3 = make(map[string]triple.Triple)
		level2[b] = level3
	}
	level3[c] = t
}

func erase(m map[string]map[string]map[string]triple.Triple, a, b, c string) {
	level2, ok := m[a]
	if !ok {
		return
	}
	level3, ok := level2[b]
	if !ok {
		return
	}
	delete(level3, c)
	if len(level3) == 0 {
		delete(level2, b)
	}
	if len(level2) == 0 {
		delete(m, a)
	}
}

func collect(m map[string]triple.Triple) []triple.Triple {
	if len(m) == 0 {
		return nil
	}
	out := make([]triple.Triple, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out
}

func collectNested(m map[string]map[string]triple.Triple) []triple.Triple {
	if len(m) == 0 {
		return nil
	}
	var out []triple.Triple
	for _, inner := range m {
		for _, t := range inner {
			out = append(out, t)
		}
	}
	return out
}
