package note

import "strings"

// Namespace is the base IRI prefix for note vocabulary terms.
const Namespace = "https://semdex.dev/ontology/note/"

// EntityScheme is the IRI scheme for document subjects. A document's
// subject IRI is EntityScheme + its vault-relative path without extension.
const EntityScheme = "note://"

// Standard ontology IRI constants for mappings.
const (
	// RdfType is the RDF type property.
	RdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// DcTitle is the Dublin Core title property.
	DcTitle = "http://purl.org/dc/terms/title"

	// DcModified is the Dublin Core modified property.
	DcModified = "http://purl.org/dc/terms/modified"

	// DcSource is the Dublin Core source property.
	DcSource = "http://purl.org/dc/terms/source"

	// DcDate is the Dublin Core date property.
	DcDate = "http://purl.org/dc/terms/date"
)

// Class IRIs define the types of note entities.
const (
	// ClassNote represents a vault document.
	ClassNote = Namespace + "Note"

	// ClassImport represents a document imported from the web.
	ClassImport = Namespace + "ImportedNote"
)

// EntityIRI returns the subject IRI for a vault-relative document path.
// The extension is dropped and separators normalize to forward slashes.
func EntityIRI(relPath string) string {
	p := strings.ReplaceAll(relPath, "\\", "/")
	if idx := strings.LastIndex(p, "."); idx > strings.LastIndex(p, "/") {
		p = p[:idx]
	}
	return EntityScheme + p
}

// predicateIRIMap maps dotted predicates to standard ontology IRIs where
// one exists.
var predicateIRIMap = map[string]string{
	MetaName:     DcTitle,
	MetaModified: DcModified,
	ImportSource: DcSource,
	ImportedAt:   DcDate,
	MetaType:     RdfType,
}

// PredicateIRI returns the standard IRI for a predicate, if mapped, and
// otherwise the predicate under the note namespace. The note. family
// prefix folds into the namespace and remaining dots become slashes, so
// note.prop.status maps to .../note/prop/status.
func PredicateIRI(predicate string) string {
	if iri, ok := predicateIRIMap[predicate]; ok {
		return iri
	}
	rest := strings.TrimPrefix(predicate, "note.")
	return Namespace + strings.ReplaceAll(rest, ".", "/")
}
