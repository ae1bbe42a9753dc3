package document

import (
	"reflect"
	"regexp"
	"strings"
	"time"
)

// PropertyKind discriminates property values.
type PropertyKind string

// Property value kinds.
const (
	KindString    PropertyKind = "string"
	KindNumber    PropertyKind = "number"
	KindBoolean   PropertyKind = "boolean"
	KindDate      PropertyKind = "date"
	KindArray     PropertyKind = "array"
	KindObject    PropertyKind = "object"
	KindReference PropertyKind = "reference"
	KindIRI       PropertyKind = "iri"
)

// Unresolved is the value a traversal yields when it detects a cycle or
// exceeds the depth cap.
const Unresolved = "unresolved"

// PropertyValue is a detected frontmatter value. Exactly the field matching
// Kind is meaningful: Str doubles as the reference target for KindReference
// and the IRI text for KindIRI.
type PropertyValue struct {
	Kind   PropertyKind
	Str    string
	Num    float64
	Bool   bool
	Time   time.Time
	Items  []PropertyValue
	Object map[string]any
}

// referencePattern matches a bracketed reference value: the whole property
// is one [[target]] form.
var referencePattern = regexp.MustCompile(`^\s*\[\[([^\[\]]+)\]\]\s*$`)

// iriPattern matches values carrying an explicit scheme.
var iriPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)

// datePattern matches ISO dates with an optional time part.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)?$`)

// maxDetectDepth caps recursion into nested arrays and objects.
const maxDetectDepth = 32

// Detect classifies an untyped frontmatter value. String values follow a
// fixed precedence: bracketed reference, then IRI scheme, then date
// pattern, then plain string. The order is load-bearing for existing data;
// a dated reference like [[2025-01-01]] must stay a reference.
func Detect(value any) PropertyValue {
	return detectValue(value, make(map[uintptr]bool), 0)
}

// detectValue is Detect with the cycle guard threaded through: containers
// are tracked by identity and revisiting one, or exceeding the depth cap,
// yields the unresolved marker instead of looping.
func detectValue(value any, visited map[uintptr]bool, depth int) PropertyValue {
	if depth > maxDetectDepth {
		return PropertyValue{Kind: KindString, Str: Unresolved}
	}

	switch v := value.(type) {
	case nil:
		return PropertyValue{Kind: KindString}

	case string:
		return detectString(v)

	case bool:
		return PropertyValue{Kind: KindBoolean, Bool: v}

	case int:
		return PropertyValue{Kind: KindNumber, Num: float64(v)}
	case int32:
		return PropertyValue{Kind: KindNumber, Num: float64(v)}
	case int64:
		return PropertyValue{Kind: KindNumber, Num: float64(v)}
	case uint64:
		return PropertyValue{Kind: KindNumber, Num: float64(v)}
	case float32:
		return PropertyValue{Kind: KindNumber, Num: float64(v)}
	case float64:
		return PropertyValue{Kind: KindNumber, Num: v}

	case time.Time:
		return PropertyValue{Kind: KindDate, Time: v.UTC()}

	case []any:
		id := reflect.ValueOf(v).Pointer()
		if visited[id] {
			return PropertyValue{Kind: KindString, Str: Unresolved}
		}
		visited[id] = true
		defer delete(visited, id)

		items := make([]PropertyValue, 0, len(v))
		for _, item := range v {
			items = append(items, detectValue(item, visited, depth+1))
		}
		return PropertyValue{Kind: KindArray, Items: items}

	case map[string]any:
		id := reflect.ValueOf(v).Pointer()
		if visited[id] {
			return PropertyValue{Kind: KindString, Str: Unresolved}
		}
		visited[id] = true
		defer delete(visited, id)

		// Guard nested containers without rewriting them: a cyclic child
		// still poisons serialization, so probe the whole subtree.
		for _, child := range v {
			if pv := detectValue(child, visited, depth+1); containsUnresolved(pv) {
				return PropertyValue{Kind: KindString, Str: Unresolved}
			}
		}
		return PropertyValue{Kind: KindObject, Object: v}

	default:
		return PropertyValue{Kind: KindString, Str: Unresolved}
	}
}

// containsUnresolved reports whether a detected value or any nested item
// is the unresolved marker.
func containsUnresolved(pv PropertyValue) bool {
	if pv.Kind == KindString && pv.Str == Unresolved {
		return true
	}
	for _, item := range pv.Items {
		if containsUnresolved(item) {
			return true
		}
	}
	return false
}

// detectString applies the string detection precedence.
func detectString(s string) PropertyValue {
	if m := referencePattern.FindStringSubmatch(s); m != nil {
		return PropertyValue{Kind: KindReference, Str: LinkTarget(m[1])}
	}
	if iriPattern.MatchString(strings.TrimSpace(s)) {
		return PropertyValue{Kind: KindIRI, Str: strings.TrimSpace(s)}
	}
	if datePattern.MatchString(strings.TrimSpace(s)) {
		if t, err := parsePropertyDate(strings.TrimSpace(s)); err == nil {
			return PropertyValue{Kind: KindDate, Time: t.UTC()}
		}
	}
	return PropertyValue{Kind: KindString, Str: s}
}

// propertyDateFormats are the accepted lexical date layouts, most specific
// first.
var propertyDateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parsePropertyDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range propertyDateFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// maxChainDepth bounds reference chain traversal.
const maxChainDepth = 32

// ResolveChain resolves a property through a chain of referring documents:
// if the document does not carry the key but the chain property (for
// example "extends") points at another document, the lookup follows it.
// The visited set and depth cap turn reference cycles into a miss instead
// of an infinite walk.
func ResolveChain(doc *Document, key, chainKey string, lookup func(target string) (*Document, bool)) (PropertyValue, bool) {
	visited := make(map[string]bool, 4)
	for depth := 0; doc != nil && depth <= maxChainDepth; depth++ {
		if visited[doc.Path] {
			return PropertyValue{}, false
		}
		visited[doc.Path] = true

		if raw, ok := doc.Properties.Get(key); ok {
			return Detect(raw), true
		}

		raw, ok := doc.Properties.Get(chainKey)
		if !ok {
			return PropertyValue{}, false
		}
		ref := Detect(raw)
		if ref.Kind != KindReference {
			return PropertyValue{}, false
		}
		next, ok := lookup(ref.Str)
		if !ok {
			return PropertyValue{}, false
		}
		doc = next
	}
	return PropertyValue{}, false
}
