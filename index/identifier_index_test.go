package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierIndex_Resolve_CaseInsensitive(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	require.True(t, idx.Add("550E8400-E29B-41D4-A716-446655440000", "/notes/a.md"))

	upper, okUpper := idx.Resolve("550E8400-E29B-41D4-A716-446655440000")
	lower, okLower := idx.Resolve("550e8400-e29b-41d4-a716-446655440000")

	assert.True(t, okUpper)
	assert.True(t, okLower)
	assert.Equal(t, upper, lower)
	assert.Equal(t, "/notes/a.md", lower)
}

func TestIdentifierIndex_Add_DuplicateOverwrites(t *testing.T) {
	idx := NewIdentifierIndex(nil)

	var gotID, gotOld, gotNew string
	idx.SetDuplicateHandler(func(id, oldLocation, newLocation string) {
		gotID, gotOld, gotNew = id, oldLocation, newLocation
	})

	require.True(t, idx.Add("550E8400-e29b-41d4-a716-446655440000", "/a.md"))
	require.True(t, idx.Add("550e8400-E29B-41d4-a716-446655440000", "/b.md"))

	location, ok := idx.Resolve("550e8400-e29b-41d4-a716-446655440000")
	require.True(t, ok)
	assert.Equal(t, "/b.md", location)
	assert.Equal(t, 1, idx.Size())

	// The duplicate warning fired with the normalized id.
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", gotID)
	assert.Equal(t, "/a.md", gotOld)
	assert.Equal(t, "/b.md", gotNew)

	// The old location no longer reverse-maps.
	assert.False(t, idx.RemoveByLocation("/a.md"))
}

func TestIdentifierIndex_Add_SameEntryIsNoOp(t *testing.T) {
	idx := NewIdentifierIndex(nil)

	fired := false
	idx.SetDuplicateHandler(func(_, _, _ string) { fired = true })

	require.True(t, idx.Add("abc", "/a.md"))
	require.True(t, idx.Add("ABC", "/a.md"))

	assert.False(t, fired)
	assert.Equal(t, 1, idx.Size())
}

func TestIdentifierIndex_Add_RelocatedIDDropsStaleForwardEntry(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	require.True(t, idx.Add("old-id", "/a.md"))
	require.True(t, idx.Add("new-id", "/a.md"))

	_, ok := idx.Resolve("old-id")
	assert.False(t, ok)

	location, ok := idx.Resolve("new-id")
	require.True(t, ok)
	assert.Equal(t, "/a.md", location)
	assert.Equal(t, 1, idx.Size())
}

func TestIdentifierIndex_Add_RejectsEmpty(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	assert.False(t, idx.Add("", "/a.md"))
	assert.False(t, idx.Add("abc", ""))
	assert.Equal(t, 0, idx.Size())
}

func TestIdentifierIndex_ResolvePartial(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	idx.Add("alpha-one", "/1.md")
	idx.Add("ALPHA-two", "/2.md")
	idx.Add("beta-one", "/3.md")

	got := idx.ResolvePartial("Alpha")
	assert.ElementsMatch(t, []string{"/1.md", "/2.md"}, got)

	assert.Empty(t, idx.ResolvePartial("gamma"))
	assert.Len(t, idx.ResolvePartial(""), 3)
}

func TestIdentifierIndex_RemoveAndRemoveByLocation(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	idx.Add("abc", "/a.md")
	idx.Add("def", "/b.md")

	assert.True(t, idx.Remove("ABC"))
	assert.False(t, idx.Remove("abc"))
	_, ok := idx.Resolve("abc")
	assert.False(t, ok)
	assert.False(t, idx.RemoveByLocation("/a.md"))

	assert.True(t, idx.RemoveByLocation("/b.md"))
	_, ok = idx.Resolve("def")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Size())
}

func TestIdentifierIndex_Stats(t *testing.T) {
	idx := NewIdentifierIndex(nil)

	stats := idx.Stats()
	assert.Equal(t, float64(0), stats.HitRate)

	idx.Add("abc", "/a.md")
	idx.Resolve("abc")
	idx.Resolve("abc")
	idx.Resolve("missing")
	idx.Resolve("also-missing")

	stats = idx.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(4), stats.LookupCount)
	assert.Equal(t, int64(2), stats.HitCount)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestIdentifierIndex_RecordBuild(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	idx.RecordBuild(250 * time.Millisecond)

	stats := idx.Stats()
	assert.Equal(t, int64(250), stats.BuildTimeMs)
	assert.WithinDuration(t, time.Now(), stats.LastBuildAt, time.Minute)
}

func TestIdentifierIndex_ExportImport(t *testing.T) {
	idx := NewIdentifierIndex(nil)
	idx.Add("beta", "/b.md")
	idx.Add("alpha", "/a.md")

	snapshot := idx.Export()
	require.Len(t, snapshot.Entries, 2)
	// Sorted by id for deterministic serialization.
	assert.Equal(t, "alpha", snapshot.Entries[0].ID)
	assert.Equal(t, "beta", snapshot.Entries[1].ID)

	restored := NewIdentifierIndex(nil)
	restored.Add("stale", "/stale.md")

	count := restored.Import(snapshot)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, restored.Size())

	// Import clears prior state.
	_, ok := restored.Resolve("stale")
	assert.False(t, ok)

	location, ok := restored.Resolve("ALPHA")
	require.True(t, ok)
	assert.Equal(t, "/a.md", location)

	// Import records a build.
	assert.False(t, restored.Stats().LastBuildAt.IsZero())
}
