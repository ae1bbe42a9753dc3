package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semdex/triple"
	"github.com/c360studio/semdex/vocabulary/note"
)

func mustParse(t *testing.T, path, content string) *Document {
	t.Helper()
	doc, err := Parse(path, []byte(content), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return doc
}

func objectsOf(triples []triple.Triple, predicate string) []triple.Term {
	want := triple.NewIRI(predicate)
	var out []triple.Term
	for _, tr := range triples {
		if tr.Predicate.Equal(want) {
			out = append(out, tr.Object)
		}
	}
	return out
}

func objectOf(t *testing.T, triples []triple.Triple, predicate string) triple.Term {
	t.Helper()
	objs := objectsOf(triples, predicate)
	require.Len(t, objs, 1, "predicate %s", predicate)
	return objs[0]
}

func TestTriples_Intrinsics(t *testing.T) {
	doc := mustParse(t, "plans/refactor.md", "---\nid: plan-1\n---\nbody")
	triples := Triples(doc)

	subject := triple.NewIRI("note://plans/refactor")
	for _, tr := range triples {
		assert.True(t, tr.Subject.Equal(subject), "subject of %v", tr)
	}

	assert.Equal(t, "refactor", objectOf(t, triples, note.MetaName).Text())
	assert.Equal(t, "plans/refactor.md", objectOf(t, triples, note.MetaPath).Text())
	assert.Equal(t, doc.ContentHash, objectOf(t, triples, note.MetaHash).Text())
	assert.Equal(t, TypeNote, objectOf(t, triples, note.MetaType).Text())
	assert.Equal(t, "plan-1", objectOf(t, triples, note.MetaID).Text())

	modified, ok := objectOf(t, triples, note.MetaModified).(triple.Literal)
	require.True(t, ok)
	when, ok := modified.Date()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), when)

	assert.Len(t, triples, 6)
}

func TestTriples_ZeroModifiedSkipped(t *testing.T) {
	doc, err := Parse("a.md", []byte("body"), time.Time{})
	require.NoError(t, err)

	triples := Triples(doc)
	assert.Empty(t, objectsOf(triples, note.MetaModified))
	assert.Len(t, triples, 4, "name, path, hash, type")
}

func TestTriples_PropertyKinds(t *testing.T) {
	doc := mustParse(t, "note.md", `---
status: open
priority: 3
done: true
due: 2025-07-01
homepage: https://example.com/docs
owner: "[[people/ana]]"
---
`)
	triples := Triples(doc)

	assert.Equal(t, "open", objectOf(t, triples, note.Prop("status")).Text())

	prio, ok := objectOf(t, triples, note.Prop("priority")).(triple.Literal)
	require.True(t, ok)
	n, ok := prio.Number()
	require.True(t, ok)
	assert.Equal(t, 3.0, n)

	done, ok := objectOf(t, triples, note.Prop("done")).(triple.Literal)
	require.True(t, ok)
	b, ok := done.Bool()
	require.True(t, ok)
	assert.True(t, b)

	due, ok := objectOf(t, triples, note.Prop("due")).(triple.Literal)
	require.True(t, ok)
	when, ok := due.Date()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), when)

	homepage := objectOf(t, triples, note.Prop("homepage"))
	assert.Equal(t, triple.TermIRI, homepage.Type())
	assert.Equal(t, "https://example.com/docs", homepage.Text())

	// A reference-valued property yields both the property triple and a
	// references relation.
	owner := objectOf(t, triples, note.Prop("owner"))
	assert.Equal(t, triple.TermIRI, owner.Type())
	assert.Equal(t, "note://people/ana", owner.Text())

	refs := objectsOf(triples, note.References)
	require.Len(t, refs, 1)
	assert.Equal(t, "note://people/ana", refs[0].Text())
}

func TestTriples_ArraysFlatten(t *testing.T) {
	doc := mustParse(t, "note.md", `---
tags:
  - infra
  - backlog
related:
  - "[[a]]"
  - "[[b]]"
  - "[[a]]"
---
`)
	triples := Triples(doc)

	tags := objectsOf(triples, note.Prop("tags"))
	require.Len(t, tags, 2)
	assert.Equal(t, "infra", tags[0].Text())
	assert.Equal(t, "backlog", tags[1].Text())

	related := objectsOf(triples, note.Prop("related"))
	assert.Len(t, related, 3, "property triples keep duplicates")

	refs := objectsOf(triples, note.References)
	require.Len(t, refs, 2, "reference relations dedupe")
	assert.Equal(t, "note://a", refs[0].Text())
	assert.Equal(t, "note://b", refs[1].Text())
}

func TestTriples_IDPropertyNotDuplicated(t *testing.T) {
	doc := mustParse(t, "n.md", "---\nid: n-1\n---\n")
	triples := Triples(doc)

	assert.Empty(t, objectsOf(triples, note.Prop("id")))
	assert.Equal(t, "n-1", objectOf(t, triples, note.MetaID).Text())
}

func TestTriples_BodyLinks(t *testing.T) {
	doc := mustParse(t, "n.md", "See [[architecture]] and [[roadmap|the roadmap]].")
	triples := Triples(doc)

	links := objectsOf(triples, note.LinksTo)
	require.Len(t, links, 2)
	assert.Equal(t, "note://architecture", links[0].Text())
	assert.Equal(t, "note://roadmap", links[1].Text())
}

func TestTriples_ImportProvenance(t *testing.T) {
	doc := mustParse(t, "imports/example-com.md", `---
id: example-com
title: Example
source: https://example.com
imported: 2026-01-15
---
Body.
`)
	triples := Triples(doc)

	assert.Equal(t, TypeImport, objectOf(t, triples, note.MetaType).Text())

	source := objectOf(t, triples, note.ImportSource)
	assert.Equal(t, triple.TermIRI, source.Type())
	assert.Equal(t, "https://example.com", source.Text())

	imported, ok := objectOf(t, triples, note.ImportedAt).(triple.Literal)
	require.True(t, ok)
	when, ok := imported.Date()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), when)

	// Provenance keys do not double as free-form properties.
	assert.Empty(t, objectsOf(triples, note.Prop("source")))
	assert.Empty(t, objectsOf(triples, note.Prop("imported")))
}

func TestTriples_PlainSourceStaysProperty(t *testing.T) {
	doc := mustParse(t, "n.md", "---\nsource: word of mouth\n---\n")
	triples := Triples(doc)

	assert.Equal(t, TypeNote, objectOf(t, triples, note.MetaType).Text())
	assert.Equal(t, "word of mouth", objectOf(t, triples, note.Prop("source")).Text())
	assert.Empty(t, objectsOf(triples, note.ImportSource))
}

func TestTriples_ObjectSerializesToJSON(t *testing.T) {
	doc := mustParse(t, "n.md", "---\nextra:\n  depth: 2\n---\n")
	triples := Triples(doc)

	lit, ok := objectOf(t, triples, note.Prop("extra")).(triple.Literal)
	require.True(t, ok)
	assert.Equal(t, `{"depth":2}`, lit.Text())
}

func TestSubject(t *testing.T) {
	doc := mustParse(t, "notes/deep/file.md", "body")
	assert.True(t, doc.Subject().Equal(triple.NewIRI("note://notes/deep/file")))
}
