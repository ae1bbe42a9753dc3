// Package note provides vocabulary predicates for vault documents.
//
// A note is one markdown document in the vault: its frontmatter properties,
// its body links, and the intrinsic facts the indexer derives (path, content
// hash, modification time). Predicates follow the dotted naming convention
// (note.meta.*, note.prop.*, note.rel.*) so queries can match whole families
// with a prefix, and each predicate maps to a stable IRI for RDF export.
package note
