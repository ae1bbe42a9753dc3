package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_StringPrecedence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want PropertyKind
	}{
		{"reference", "[[other note]]", KindReference},
		{"reference with alias", "[[other note|shown]]", KindReference},
		{"dated reference stays reference", "[[2025-01-01]]", KindReference},
		{"iri", "https://example.com/page", KindIRI},
		{"custom scheme iri", "note://plans/q3", KindIRI},
		{"date", "2025-01-01", KindDate},
		{"datetime", "2025-01-01T09:30:00Z", KindDate},
		{"datetime with space", "2025-01-01 09:30", KindDate},
		{"plain string", "just words", KindString},
		{"almost a date", "2025-13-99", KindString},
		{"almost an iri", "not a://scheme", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.in)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestDetect_ReferenceTargetNormalized(t *testing.T) {
	got := Detect("[[plans/q3#goals|Q3 goals]]")
	require.Equal(t, KindReference, got.Kind)
	assert.Equal(t, "plans/q3", got.Str)
}

func TestDetect_NativeTypes(t *testing.T) {
	assert.Equal(t, KindNumber, Detect(42).Kind)
	assert.Equal(t, 42.0, Detect(42).Num)
	assert.Equal(t, KindNumber, Detect(4.5).Kind)
	assert.Equal(t, KindBoolean, Detect(true).Kind)
	assert.Equal(t, KindString, Detect(nil).Kind)

	when := time.Date(2025, 2, 1, 8, 0, 0, 0, time.FixedZone("CET", 3600))
	got := Detect(when)
	require.Equal(t, KindDate, got.Kind)
	assert.Equal(t, time.UTC, got.Time.Location(), "dates normalize to UTC")
}

func TestDetect_ArrayElementWise(t *testing.T) {
	got := Detect([]any{"plain", 7, "[[ref]]", "https://example.com"})
	require.Equal(t, KindArray, got.Kind)
	require.Len(t, got.Items, 4)
	assert.Equal(t, KindString, got.Items[0].Kind)
	assert.Equal(t, KindNumber, got.Items[1].Kind)
	assert.Equal(t, KindReference, got.Items[2].Kind)
	assert.Equal(t, KindIRI, got.Items[3].Kind)
}

func TestDetect_Object(t *testing.T) {
	got := Detect(map[string]any{"nested": "value", "n": 1})
	require.Equal(t, KindObject, got.Kind)
	assert.Equal(t, "value", got.Object["nested"])
}

func TestDetect_CyclicStructureIsUnresolved(t *testing.T) {
	cyclicSlice := []any{nil}
	cyclicSlice[0] = cyclicSlice

	got := Detect(cyclicSlice)
	require.Equal(t, KindArray, got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, Unresolved, got.Items[0].Str)

	cyclicMap := map[string]any{}
	cyclicMap["self"] = cyclicMap
	got = Detect(cyclicMap)
	assert.Equal(t, KindString, got.Kind)
	assert.Equal(t, Unresolved, got.Str)
}

func TestDetect_DepthCap(t *testing.T) {
	// Deeper than the cap, but acyclic: the guard trips on depth alone.
	deep := any("leaf")
	for i := 0; i < 64; i++ {
		deep = []any{deep}
	}
	got := Detect(deep)
	for got.Kind == KindArray {
		require.Len(t, got.Items, 1)
		got = got.Items[0]
	}
	assert.Equal(t, Unresolved, got.Str)
}

func TestDetect_SharedButAcyclicContainers(t *testing.T) {
	// The same slice referenced twice from different branches is not a
	// cycle and must detect normally.
	shared := []any{"x"}
	got := Detect([]any{shared, shared})
	require.Equal(t, KindArray, got.Kind)
	require.Len(t, got.Items, 2)
	for _, item := range got.Items {
		require.Equal(t, KindArray, item.Kind)
		assert.Equal(t, "x", item.Items[0].Str)
	}
}

func chainDocs(t *testing.T, specs map[string]string) map[string]*Document {
	t.Helper()
	docs := make(map[string]*Document, len(specs))
	for path, content := range specs {
		doc, err := Parse(path+".md", []byte(content), time.Time{})
		require.NoError(t, err)
		docs[path] = doc
	}
	return docs
}

func TestResolveChain_FollowsPrototypes(t *testing.T) {
	docs := chainDocs(t, map[string]string{
		"child":  "---\nextends: \"[[parent]]\"\n---\n",
		"parent": "---\nextends: \"[[base]]\"\n---\n",
		"base":   "---\nstatus: done\n---\n",
	})
	lookup := func(target string) (*Document, bool) {
		d, ok := docs[target]
		return d, ok
	}

	got, ok := ResolveChain(docs["child"], "status", "extends", lookup)
	require.True(t, ok)
	assert.Equal(t, KindString, got.Kind)
	assert.Equal(t, "done", got.Str)
}

func TestResolveChain_OwnValueWins(t *testing.T) {
	docs := chainDocs(t, map[string]string{
		"child":  "---\nextends: \"[[parent]]\"\nstatus: open\n---\n",
		"parent": "---\nstatus: done\n---\n",
	})
	lookup := func(target string) (*Document, bool) {
		d, ok := docs[target]
		return d, ok
	}

	got, ok := ResolveChain(docs["child"], "status", "extends", lookup)
	require.True(t, ok)
	assert.Equal(t, "open", got.Str)
}

func TestResolveChain_CycleIsUnresolved(t *testing.T) {
	docs := chainDocs(t, map[string]string{
		"a": "---\nextends: \"[[b]]\"\n---\n",
		"b": "---\nextends: \"[[a]]\"\n---\n",
	})
	lookup := func(target string) (*Document, bool) {
		d, ok := docs[target]
		return d, ok
	}

	_, ok := ResolveChain(docs["a"], "status", "extends", lookup)
	assert.False(t, ok)
}

func TestResolveChain_MissingLinkIsUnresolved(t *testing.T) {
	docs := chainDocs(t, map[string]string{
		"a": "---\nextends: \"[[ghost]]\"\n---\n",
	})
	lookup := func(target string) (*Document, bool) {
		d, ok := docs[target]
		return d, ok
	}

	_, ok := ResolveChain(docs["a"], "status", "extends", lookup)
	assert.False(t, ok)
}
