package index

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// IdentifierIndex resolves a document's declared unique identifier to its
// location and back. Identifiers are normalized to lowercase; lookups are
// case-insensitive. Like TripleIndex it carries no internal locking.
type IdentifierIndex struct {
	forward map[string]string // normalized id → location
	reverse map[string]string // location → normalized id

	lookups int64
	hits    int64

	buildTime   time.Duration
	lastBuildAt time.Time

	logger      *slog.Logger
	onDuplicate func(id, oldLocation, newLocation string)
}

// IdentifierStats summarizes index size and lookup behavior.
type IdentifierStats struct {
	Size        int       `json:"size"`
	LookupCount int64     `json:"lookup_count"`
	HitCount    int64     `json:"hit_count"`
	HitRate     float64   `json:"hit_rate"`
	BuildTimeMs int64     `json:"build_time_ms"`
	LastBuildAt time.Time `json:"last_build_at"`
}

// Snapshot is the serializable form of the index.
type Snapshot struct {
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is one id/location pair.
type SnapshotEntry struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

// NewIdentifierIndex creates an empty identifier index. A nil logger falls
// back to slog.Default().
func NewIdentifierIndex(logger *slog.Logger) *IdentifierIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentifierIndex{
		forward: make(map[string]string),
		reverse: make(map[string]string),
		logger:  logger,
	}
}

// SetDuplicateHandler installs a hook called when an id is re-registered
// at a new location. The warning is also logged either way.
func (idx *IdentifierIndex) SetDuplicateHandler(fn func(id, oldLocation, newLocation string)) {
	idx.onDuplicate = fn
}

// Add registers an id at a location. The id is lowercased. Registering the
// same id at the same location is a no-op. Registering it at a different
// location overwrites the old entry and emits a duplicate warning; size
// stays consistent. A location already registered under another id drops
// its stale forward entry. Returns false only for an empty id or location.
func (idx *IdentifierIndex) Add(id, location string) bool {
	norm := normalizeID(id)
	if norm == "" || location == "" {
		return false
	}

	if old, exists := idx.forward[norm]; exists {
		if old == location {
			return true
		}
		idx.logger.Warn("duplicate identifier re-registered",
			"id", norm,
			"old_location", old,
			"new_location", location)
		if idx.onDuplicate != nil {
			idx.onDuplicate(norm, old, location)
		}
		delete(idx.reverse, old)
	}

	// A location re-keyed under a new id must not leave the old id behind.
	if oldID, exists := idx.reverse[location]; exists && oldID != norm {
		delete(idx.forward, oldID)
	}

	idx.forward[norm] = location
	idx.reverse[location] = norm
	identifierCount.Set(float64(len(idx.forward)))
	return true
}

// Resolve returns the location registered for an id, case-insensitively.
// Every call counts as a lookup; successful calls count as hits.
func (idx *IdentifierIndex) Resolve(id string) (string, bool) {
	idx.lookups++
	identifierLookups.Inc()

	location, ok := idx.forward[normalizeID(id)]
	if ok {
		idx.hits++
		identifierHits.Inc()
	}
	return location, ok
}

// ResolvePartial returns the locations of every entry whose normalized id
// starts with the normalized prefix. Order is unspecified.
func (idx *IdentifierIndex) ResolvePartial(prefix string) []string {
	norm := normalizeID(prefix)
	var out []string
	for id, location := range idx.forward {
		if strings.HasPrefix(id, norm) {
			out = append(out, location)
		}
	}
	return out
}

// Remove drops an id from both maps. Returns false when absent.
func (idx *IdentifierIndex) Remove(id string) bool {
	norm := normalizeID(id)
	location, ok := idx.forward[norm]
	if !ok {
		return false
	}
	delete(idx.forward, norm)
	delete(idx.reverse, location)
	identifierCount.Set(float64(len(idx.forward)))
	return true
}

// RemoveByLocation drops the entry registered at a location. Returns false
// when absent.
func (idx *IdentifierIndex) RemoveByLocation(location string) bool {
	id, ok := idx.reverse[location]
	if !ok {
		return false
	}
	delete(idx.reverse, location)
	delete(idx.forward, id)
	identifierCount.Set(float64(len(idx.forward)))
	return true
}

// Size returns the number of registered identifiers.
func (idx *IdentifierIndex) Size() int { return len(idx.forward) }

// Stats returns current counters. HitRate is 0 when nothing was looked up.
func (idx *IdentifierIndex) Stats() IdentifierStats {
	stats := IdentifierStats{
		Size:        len(idx.forward),
		LookupCount: idx.lookups,
		HitCount:    idx.hits,
		BuildTimeMs: idx.buildTime.Milliseconds(),
		LastBuildAt: idx.lastBuildAt,
	}
	if idx.lookups > 0 {
		stats.HitRate = float64(idx.hits) / float64(idx.lookups)
	}
	return stats
}

// RecordBuild stores the duration of the most recent full build or import.
func (idx *IdentifierIndex) RecordBuild(d time.Duration) {
	idx.buildTime = d
	idx.lastBuildAt = time.Now()
}

// Export serializes the index to a snapshot, entries sorted by id.
func (idx *IdentifierIndex) Export() Snapshot {
	entries := make([]SnapshotEntry, 0, len(idx.forward))
	for id, location := range idx.forward {
		entries = append(entries, SnapshotEntry{ID: id, Location: location})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return Snapshot{Entries: entries}
}

// Import clears the index and rebuilds it from a snapshot, returning the
// resulting size. Duplicate entries within the snapshot follow the same
// newest-wins rule as Add.
func (idx *IdentifierIndex) Import(snapshot Snapshot) int {
	start := time.Now()
	idx.forward = make(map[string]string, len(snapshot.Entries))
	idx.reverse = make(map[string]string, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		idx.Add(entry.ID, entry.Location)
	}
	idx.RecordBuild(time.Since(start))
	identifierCount.Set(float64(len(idx.forward)))
	return len(idx.forward)
}

// normalizeID lowercases an identifier for case-insensitive matching.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
