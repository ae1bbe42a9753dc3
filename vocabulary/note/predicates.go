package note

// Meta predicates carry intrinsic document facts derived by the indexer
// rather than declared in frontmatter.
const (
	// MetaID is the document's declared unique identifier, when the
	// frontmatter carries one. Feeds the identifier index.
	MetaID = "note.meta.id"

	// MetaName is the document name: the file name without extension.
	MetaName = "note.meta.name"

	// MetaPath is the vault-relative file path.
	MetaPath = "note.meta.path"

	// MetaHash is the sha256 content hash for staleness detection.
	MetaHash = "note.meta.hash"

	// MetaModified is the file modification time.
	MetaModified = "note.meta.modified"

	// MetaType is the document type.
	// Values: "note", "import"
	MetaType = "note.meta.type"
)

// Relationship predicates linking documents.
const (
	// LinksTo records one [[wiki-link]] from the body.
	// Domain: note entity, Range: note entity
	LinksTo = "note.rel.links_to"

	// References records a frontmatter property whose value is a
	// bracketed reference to another document.
	// Domain: note entity, Range: note entity
	References = "note.rel.references"
)

// Import predicates for documents created by the web importer.
const (
	// ImportSource is the URL the document was imported from.
	ImportSource = "note.import.source"

	// ImportedAt is the import date.
	ImportedAt = "note.import.imported_at"
)

// PropPrefix namespaces free-form frontmatter keys. Every property that is
// not an intrinsic fact becomes note.prop.<key>.
const PropPrefix = "note.prop."

// Prop returns the predicate for a free-form frontmatter key.
func Prop(key string) string { return PropPrefix + key }

// PropKey returns the frontmatter key of a note.prop.* predicate and
// whether the predicate belongs to that family.
func PropKey(predicate string) (string, bool) {
	if len(predicate) > len(PropPrefix) && predicate[:len(PropPrefix)] == PropPrefix {
		return predicate[len(PropPrefix):], true
	}
	return "", false
}
