package document

import (
	"encoding/json"

	"github.com/c360studio/semdex/triple"
	"github.com/c360studio/semdex/vocabulary/note"
)

// TypeNote and TypeImport are the note.meta.type values.
const (
	TypeNote   = "note"
	TypeImport = "import"
)

// Subject returns the document's subject IRI term.
func (d *Document) Subject() triple.Term {
	return triple.NewIRI(note.EntityIRI(d.Path))
}

// Triples maps a document to its indexable triples: intrinsic facts first,
// then one triple per frontmatter property in declaration order (arrays
// flattened element-wise, objects serialized to JSON), then reference and
// link relations. Invalid combinations (a property value that cannot be a
// term) are skipped rather than failing the document.
func Triples(doc *Document) []triple.Triple {
	subject := doc.Subject()

	// Imported documents carry a source URL property.
	docType := TypeNote
	if v, ok := doc.Properties.Get("source"); ok && Detect(v).Kind == KindIRI {
		docType = TypeImport
	}

	var out []triple.Triple
	add := func(predicate string, object triple.Term) {
		t, err := triple.New(subject, triple.NewIRI(predicate), object)
		if err != nil {
			return
		}
		out = append(out, t)
	}

	add(note.MetaName, triple.NewStringLiteral(doc.Name))
	add(note.MetaPath, triple.NewStringLiteral(doc.Path))
	add(note.MetaHash, triple.NewStringLiteral(doc.ContentHash))
	if !doc.ModifiedAt.IsZero() {
		add(note.MetaModified, triple.NewDateLiteral(doc.ModifiedAt))
	}
	add(note.MetaType, triple.NewStringLiteral(docType))
	if doc.ID != "" {
		add(note.MetaID, triple.NewStringLiteral(doc.ID))
	}

	var references []string
	for _, key := range doc.Properties.Keys() {
		if key == "id" {
			// The declared id is already note.meta.id and feeds the
			// identifier index; a second triple would just duplicate it.
			continue
		}
		raw, _ := doc.Properties.Get(key)
		value := Detect(raw)
		predicate := note.Prop(key)
		if docType == TypeImport {
			// The web importer's provenance keys get their own predicates.
			switch key {
			case "source":
				predicate = note.ImportSource
			case "imported":
				predicate = note.ImportedAt
			}
		}

		if value.Kind == KindArray {
			for _, item := range value.Items {
				if term, ok := propertyTerm(item); ok {
					add(predicate, term)
				}
				if item.Kind == KindReference {
					references = append(references, item.Str)
				}
			}
			continue
		}

		if term, ok := propertyTerm(value); ok {
			add(predicate, term)
		}
		if value.Kind == KindReference {
			references = append(references, value.Str)
		}
	}

	for _, target := range dedupe(references) {
		add(note.References, triple.NewIRI(note.EntityIRI(target)))
	}
	for _, target := range doc.Links {
		add(note.LinksTo, triple.NewIRI(note.EntityIRI(target)))
	}
	return out
}

// propertyTerm maps a detected property value to a triple object term.
func propertyTerm(value PropertyValue) (triple.Term, bool) {
	switch value.Kind {
	case KindString:
		return triple.NewStringLiteral(value.Str), true
	case KindNumber:
		return triple.NewNumberLiteral(value.Num), true
	case KindBoolean:
		return triple.NewBoolLiteral(value.Bool), true
	case KindDate:
		return triple.NewDateLiteral(value.Time), true
	case KindReference:
		return triple.NewIRI(note.EntityIRI(value.Str)), true
	case KindIRI:
		return triple.NewIRI(value.Str), true
	case KindObject:
		data, err := json.Marshal(value.Object)
		if err != nil {
			return nil, false
		}
		return triple.NewTypedLiteral(string(data), "json"), true
	case KindArray:
		// Arrays flatten at the call site; a nested array inside an array
		// has no scalar form.
		return nil, false
	default:
		return nil, false
	}
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
