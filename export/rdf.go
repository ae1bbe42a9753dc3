// Package export serializes indexed triples to standard RDF formats.
// Dotted note predicates map to their ontology IRIs and note.meta.type
// values become rdf:type class assertions.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/semdex/triple"
	"github.com/c360studio/semdex/vocabulary/note"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema#"

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Exporter serializes triples to RDF.
type Exporter struct {
	triples  []triple.Triple
	prefixes map[string]string
}

// NewExporter creates an empty exporter.
func NewExporter() *Exporter {
	return &Exporter{prefixes: defaultPrefixes()}
}

// defaultPrefixes returns the namespace prefixes written to Turtle and
// JSON-LD output.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"xsd":  xsdNamespace,
		"dc":   "http://purl.org/dc/terms/",
		"note": note.Namespace,
	}
}

// Add appends triples to the export set.
func (e *Exporter) Add(triples ...triple.Triple) {
	e.triples = append(e.triples, triples...)
}

// Export serializes the added triples. Output is deterministic: triples
// sort by subject, predicate, then object, regardless of insertion order.
func (e *Exporter) Export(format Format) (string, error) {
	sorted := make([]triple.Triple, len(e.triples))
	copy(sorted, e.triples)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Subject.Key() != b.Subject.Key() {
			return a.Subject.Key() < b.Subject.Key()
		}
		if a.Predicate.Key() != b.Predicate.Key() {
			return a.Predicate.Key() < b.Predicate.Key()
		}
		return a.Object.Key() < b.Object.Key()
	})

	switch format {
	case FormatTurtle:
		return e.toTurtle(sorted), nil
	case FormatNTriples:
		return e.toNTriples(sorted), nil
	case FormatJSONLD:
		return e.toJSONLD(sorted), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// exportTerms maps one stored triple to the predicate IRI and object term
// it serializes as. note.meta.type string values rewrite to class IRIs so
// every document carries a proper rdf:type assertion.
func exportTerms(tr triple.Triple) (string, triple.Term) {
	pred := note.PredicateIRI(tr.Predicate.Text())
	obj := tr.Object
	if tr.Predicate.Text() == note.MetaType {
		if lit, ok := obj.(triple.Literal); ok {
			if s, isStr := lit.Value.(string); isStr {
				obj = triple.NewIRI(classIRI(s))
			}
		}
	}
	return pred, obj
}

// classIRI maps a note.meta.type value to its class IRI.
func classIRI(docType string) string {
	if docType == "import" {
		return note.ClassImport
	}
	return note.ClassNote
}

// toTurtle serializes to Turtle, grouping triples by subject.
func (e *Exporter) toTurtle(triples []triple.Triple) string {
	var sb strings.Builder

	names := make([]string, 0, len(e.prefixes))
	for name := range e.prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", name, e.prefixes[name]))
	}
	sb.WriteString("\n")

	for start := 0; start < len(triples); {
		end := start
		for end < len(triples) && triples[end].Subject.Equal(triples[start].Subject) {
			end++
		}
		e.writeSubjectTurtle(&sb, triples[start:end])
		sb.WriteString("\n")
		start = end
	}

	return sb.String()
}

// writeSubjectTurtle writes one subject's predicate-object list.
func (e *Exporter) writeSubjectTurtle(sb *strings.Builder, group []triple.Triple) {
	sb.WriteString(fmt.Sprintf("<%s>\n", group[0].Subject.Text()))

	for i, tr := range group {
		pred, obj := exportTerms(tr)
		if pred == note.RdfType {
			sb.WriteString(fmt.Sprintf("    a %s", formatObjectTurtle(obj)))
		} else {
			sb.WriteString(fmt.Sprintf("    <%s> %s", pred, formatObjectTurtle(obj)))
		}
		if i < len(group)-1 {
			sb.WriteString(" ;\n")
		} else {
			sb.WriteString(" .\n")
		}
	}
}

// toNTriples serializes to N-Triples, one statement per line.
func (e *Exporter) toNTriples(triples []triple.Triple) string {
	var sb strings.Builder

	for _, tr := range triples {
		pred, obj := exportTerms(tr)
		sb.WriteString(fmt.Sprintf("<%s> <%s> %s .\n",
			tr.Subject.Text(), pred, formatObjectNTriples(obj)))
	}

	return sb.String()
}

// toJSONLD serializes to JSON-LD with one @graph node per subject.
func (e *Exporter) toJSONLD(triples []triple.Triple) string {
	var sb strings.Builder

	sb.WriteString("{\n")
	sb.WriteString("  \"@context\": {\n")

	names := make([]string, 0, len(e.prefixes))
	for name := range e.prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		sb.WriteString(fmt.Sprintf("    %q: %q", name, e.prefixes[name]))
		if i < len(names)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  },\n")
	sb.WriteString("  \"@graph\": [\n")

	first := true
	for start := 0; start < len(triples); {
		end := start
		for end < len(triples) && triples[end].Subject.Equal(triples[start].Subject) {
			end++
		}
		if !first {
			sb.WriteString(",\n")
		}
		first = false
		e.writeSubjectJSONLD(&sb, triples[start:end])
		start = end
	}
	sb.WriteString("\n  ]\n")
	sb.WriteString("}\n")

	return sb.String()
}

// writeSubjectJSONLD writes one subject node. Types collect under @type;
// repeated predicates collect into arrays.
func (e *Exporter) writeSubjectJSONLD(sb *strings.Builder, group []triple.Triple) {
	var types []string
	values := make(map[string][]string)
	var order []string

	for _, tr := range group {
		pred, obj := exportTerms(tr)
		if pred == note.RdfType {
			if iri, ok := obj.(triple.IRI); ok {
				types = append(types, iri.Value)
				continue
			}
		}
		if _, seen := values[pred]; !seen {
			order = append(order, pred)
		}
		values[pred] = append(values[pred], formatObjectJSONLD(obj))
	}

	sb.WriteString("    {\n")
	sb.WriteString(fmt.Sprintf("      \"@id\": %q", group[0].Subject.Text()))

	if len(types) > 0 {
		sb.WriteString(",\n      \"@type\": [")
		for i, t := range types {
			sb.WriteString(fmt.Sprintf("%q", t))
			if i < len(types)-1 {
				sb.WriteString(", ")
			}
		}
		sb.WriteString("]")
	}

	for _, pred := range order {
		sb.WriteString(",\n")
		objs := values[pred]
		if len(objs) == 1 {
			sb.WriteString(fmt.Sprintf("      %q: %s", pred, objs[0]))
		} else {
			sb.WriteString(fmt.Sprintf("      %q: [%s]", pred, strings.Join(objs, ", ")))
		}
	}

	sb.WriteString("\n    }")
}

// formatObjectTurtle renders an object term with prefixed xsd datatypes.
func formatObjectTurtle(term triple.Term) string {
	switch t := term.(type) {
	case triple.IRI:
		return "<" + t.Value + ">"
	case triple.Blank:
		return t.Key()
	case triple.Literal:
		switch t.Value.(type) {
		case float64:
			return fmt.Sprintf("\"%s\"^^xsd:decimal", t.Text())
		case bool:
			return fmt.Sprintf("\"%s\"^^xsd:boolean", t.Text())
		default:
			return formatStringLiteral(t, true)
		}
	default:
		return fmt.Sprintf("%q", term.Text())
	}
}

// formatObjectNTriples renders an object term with full datatype IRIs.
func formatObjectNTriples(term triple.Term) string {
	switch t := term.(type) {
	case triple.IRI:
		return "<" + t.Value + ">"
	case triple.Blank:
		return t.Key()
	case triple.Literal:
		switch t.Value.(type) {
		case float64:
			return fmt.Sprintf("\"%s\"^^<%sdecimal>", t.Text(), xsdNamespace)
		case bool:
			return fmt.Sprintf("\"%s\"^^<%sboolean>", t.Text(), xsdNamespace)
		default:
			return formatStringLiteral(t, false)
		}
	default:
		return fmt.Sprintf("%q", term.Text())
	}
}

// formatStringLiteral renders string and date literals, which share the
// quoted-lexical shape in both Turtle and N-Triples.
func formatStringLiteral(t triple.Literal, prefixed bool) string {
	if _, ok := t.Date(); ok {
		if prefixed {
			return fmt.Sprintf("\"%s\"^^xsd:dateTime", t.Text())
		}
		return fmt.Sprintf("\"%s\"^^<%sdateTime>", t.Text(), xsdNamespace)
	}
	quoted := "\"" + escapeString(t.Text()) + "\""
	if t.Language != "" {
		return quoted + "@" + t.Language
	}
	if t.Datatype != "" {
		return quoted + "^^<" + t.Datatype + ">"
	}
	return quoted
}

// formatObjectJSONLD renders an object term as a JSON-LD value.
func formatObjectJSONLD(term triple.Term) string {
	switch t := term.(type) {
	case triple.IRI:
		return fmt.Sprintf("{\"@id\": %q}", t.Value)
	case triple.Blank:
		return fmt.Sprintf("{\"@id\": %q}", t.Key())
	case triple.Literal:
		switch t.Value.(type) {
		case float64:
			return t.Text()
		case bool:
			return t.Text()
		default:
			if _, ok := t.Date(); ok {
				return fmt.Sprintf("{\"@value\": %q, \"@type\": \"xsd:dateTime\"}", t.Text())
			}
			return fmt.Sprintf("%q", t.Text())
		}
	default:
		return fmt.Sprintf("%q", term.Text())
	}
}

// escapeString escapes special characters for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
