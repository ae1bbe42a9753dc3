package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semdex/index"
	"github.com/c360studio/semdex/triple"
)

// Parser turns query text into a decoded AST. The engine does not parse
// query syntax itself; callers inject a parser (a sparqljs sidecar, a
// grammar binding, or anything else producing the AST JSON shape).
type Parser interface {
	Parse(ctx context.Context, text string) (*Query, error)
}

// Result is a materialized query solution.
type Result struct {
	Bindings  []*triple.Binding `json:"bindings"`
	Count     int               `json:"count"`
	QueryTime time.Duration     `json:"query_time"`
}

// Stats summarizes the state of both indexes and the query counters.
type Stats struct {
	Triples     int                   `json:"triples"`
	Identifiers index.IdentifierStats `json:"identifiers"`
	Queries     int64                 `json:"queries"`
	LastQuery   time.Time             `json:"last_query,omitzero"`
}

// Service owns the triple index and the identifier index and serializes
// index mutation against in-flight evaluation: mutations take the write
// lock, queries and lookups share the read lock. Resolve is the one read
// that takes the write lock because it advances the lookup counters.
type Service struct {
	triples     *index.TripleIndex
	identifiers *index.IdentifierIndex
	parser      Parser
	logger      *slog.Logger

	mu sync.RWMutex

	queriesProcessed int64
	lastQuery        time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithParser injects the query-text parser. Without one, Query returns
// ErrNoParser and only QueryAST is usable.
func WithParser(p Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a service with empty indexes.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.triples = index.NewTripleIndex()
	s.identifiers = index.NewIdentifierIndex(s.logger)
	return s
}

// Query parses, translates, and evaluates query text.
func (s *Service) Query(ctx context.Context, text string) (*Result, error) {
	if s.parser == nil {
		return nil, ErrNoParser
	}

	ast, err := s.parser.Parse(ctx, text)
	if err != nil {
		queryErrors.Inc()
		return nil, &ParseError{Err: err}
	}
	return s.QueryAST(ctx, ast)
}

// QueryAST translates and evaluates a pre-parsed query. It works with or
// without an injected parser.
func (s *Service) QueryAST(ctx context.Context, ast *Query) (*Result, error) {
	start := time.Now()

	op, err := Translate(ast)
	if err != nil {
		queryErrors.Inc()
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.queriesProcessed++
	s.lastQuery = time.Now()
	s.mu.Unlock()

	s.mu.RLock()
	bindings, err := NewEvaluator(s.triples).Evaluate(op)
	s.mu.RUnlock()
	if err != nil {
		queryErrors.Inc()
		return nil, fmt.Errorf("evaluate query: %w", err)
	}

	elapsed := time.Since(start)
	queriesTotal.Inc()
	queryDuration.Observe(elapsed.Seconds())
	s.logger.Debug("query executed",
		"results", len(bindings),
		"duration_ms", elapsed.Milliseconds())

	return &Result{
		Bindings:  bindings,
		Count:     len(bindings),
		QueryTime: elapsed,
	}, nil
}

// Resolve returns the location registered for an identifier. It takes the
// write lock because lookup counters advance on every call.
func (s *Service) Resolve(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifiers.Resolve(id)
}

// ResolvePartial returns the locations of identifiers sharing a prefix.
func (s *Service) ResolvePartial(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifiers.ResolvePartial(prefix)
}

// Stats returns a point-in-time snapshot of index sizes and counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Triples:     s.triples.Size(),
		Identifiers: s.identifiers.Stats(),
		Queries:     s.queriesProcessed,
		LastQuery:   s.lastQuery,
	}
}

// TripleCount returns the number of indexed triples.
func (s *Service) TripleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triples.Size()
}

// Match answers a single pattern query. A nil slot is a wildcard.
func (s *Service) Match(subject, predicate, object triple.Term) []triple.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triples.Match(subject, predicate, object)
}

// ReplaceSubject atomically swaps every triple under a subject for the
// given set. This is the document-update primitive: stale triples from a
// prior version of the document cannot survive it.
func (s *Service) ReplaceSubject(subject triple.Term, triples []triple.Triple) (removed, added int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed = s.triples.RemoveBySubject(subject)
	for _, t := range triples {
		if s.triples.Add(t) {
			added++
		}
	}
	index.TripleCount.Set(float64(s.triples.Size()))
	return removed, added
}

// RemoveSubject deletes every triple under a subject.
func (s *Service) RemoveSubject(subject triple.Term) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.triples.RemoveBySubject(subject)
	index.TripleCount.Set(float64(s.triples.Size()))
	return removed
}

// SetIdentifier registers an identifier at a location, newest-wins.
func (s *Service) SetIdentifier(id, location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifiers.Add(id, location)
}

// RemoveIdentifierAt drops the identifier registered at a location.
func (s *Service) RemoveIdentifierAt(location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifiers.RemoveByLocation(location)
}

// Reset clears both indexes. The indexer calls this at the top of a full
// rebuild.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples.Clear()
	s.identifiers.Import(index.Snapshot{})
	index.TripleCount.Set(0)
}

// RecordBuild stores the duration of the last full rebuild on the
// identifier index so Stats can report it.
func (s *Service) RecordBuild(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifiers.RecordBuild(d)
}

// ExportIdentifiers returns a serializable snapshot of the identifier
// index for persistence.
func (s *Service) ExportIdentifiers() index.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifiers.Export()
}

// ImportIdentifiers replaces the identifier index from a snapshot and
// returns the resulting size.
func (s *Service) ImportIdentifiers(snapshot index.Snapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifiers.Import(snapshot)
}
