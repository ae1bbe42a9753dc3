// Package indexer populates the triple and identifier indexes from a vault
// of markdown documents and keeps them current as files change.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semdex/config"
	"github.com/c360studio/semdex/document"
	"github.com/c360studio/semdex/index"
	"github.com/c360studio/semdex/query"
	"github.com/c360studio/semdex/triple"
	"github.com/c360studio/semdex/vocabulary/note"
)

// Indexer scans a vault and maintains the query service's indexes.
type Indexer struct {
	service *query.Service
	cfg     config.VaultConfig
	logger  *slog.Logger
}

// New creates an indexer over a query service.
func New(service *query.Service, cfg config.VaultConfig, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{service: service, cfg: cfg, logger: logger}
}

// RebuildResult summarizes a full vault rebuild.
type RebuildResult struct {
	Documents   int
	Triples     int
	Identifiers int
	Failed      int
	Duration    time.Duration
}

// Rebuild clears both indexes and re-indexes every document the vault
// include patterns select.
func (ix *Indexer) Rebuild(ctx context.Context) (*RebuildResult, error) {
	return ix.rebuild(ctx, nil)
}

func (ix *Indexer) rebuild(ctx context.Context, w *Watcher) (*RebuildResult, error) {
	start := time.Now()

	paths, err := ResolveDocuments(ix.cfg.Path, ix.cfg.Include, ix.cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}

	ix.service.Reset()

	result := &RebuildResult{}
	for _, relPath := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := ix.loadDocument(relPath)
		if err != nil {
			result.Failed++
			ix.logger.Warn("Failed to load document", "path", relPath, "error", err)
			continue
		}

		result.Documents++
		result.Triples += ix.apply(doc)
		if doc.ID != "" {
			result.Identifiers++
		}
		if w != nil {
			w.SetHash(relPath, doc.ContentHash)
		}
	}

	result.Duration = time.Since(start)
	ix.service.RecordBuild(result.Duration)
	index.RebuildsTotal.Inc()
	index.RebuildDuration.Observe(result.Duration.Seconds())

	ix.logger.Info("Vault rebuilt",
		"documents", result.Documents,
		"triples", result.Triples,
		"identifiers", result.Identifiers,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// IndexFile parses one vault document and replaces its indexed triples and
// identifier registration. The path is vault-relative.
func (ix *Indexer) IndexFile(relPath string) error {
	doc, err := ix.loadDocument(relPath)
	if err != nil {
		return err
	}

	triples := ix.apply(doc)
	ix.logger.Debug("Document indexed", "path", relPath, "triples", triples)
	return nil
}

// RemoveFile drops a document's triples and identifier registration.
func (ix *Indexer) RemoveFile(relPath string) {
	subject := triple.NewIRI(note.EntityIRI(relPath))
	removed := ix.service.RemoveSubject(subject)
	ix.service.RemoveIdentifierAt(relPath)
	ix.logger.Debug("Document removed from index", "path", relPath, "triples", removed)
}

// RenameFile moves a document's index entries to a new vault-relative path.
func (ix *Indexer) RenameFile(oldPath, newPath string) error {
	ix.RemoveFile(oldPath)
	return ix.IndexFile(newPath)
}

// Run rebuilds the index, then applies watcher events until the context is
// done. The rebuild primes the watcher's hash cache so files rewritten with
// unchanged content during startup do not replay as changes.
func (ix *Indexer) Run(ctx context.Context, w *Watcher) error {
	if _, err := ix.rebuild(ctx, w); err != nil {
		return err
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			ix.handleEvent(event)
		}
	}
}

// handleEvent applies one watch event to the indexes.
func (ix *Indexer) handleEvent(event WatchEvent) {
	switch event.Operation {
	case WatchOpCreate, WatchOpModify:
		if !ix.matchesInclude(event.Path) {
			return
		}
		if err := ix.IndexFile(event.Path); err != nil {
			ix.logger.Warn("Failed to index document",
				"path", event.Path,
				"op", event.Operation,
				"error", err)
		}
	case WatchOpDelete:
		// Removing a path that was never indexed is a no-op, so no
		// include check is needed here.
		ix.RemoveFile(event.Path)
	}
}

// matchesInclude reports whether a vault-relative path is selected by the
// include patterns. The watcher filters by extension only; this applies
// the full glob and exclude rules.
func (ix *Indexer) matchesInclude(relPath string) bool {
	if isExcluded(relPath, ix.cfg.Exclude) {
		return false
	}
	for _, pattern := range ix.cfg.Include {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// loadDocument reads and parses one vault-relative document.
func (ix *Indexer) loadDocument(relPath string) (*document.Document, error) {
	absPath := filepath.Join(ix.cfg.Path, filepath.FromSlash(relPath))

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	return document.Parse(relPath, content, info.ModTime())
}

// apply replaces the document's triples and identifier registration,
// returning the number of triples produced for it.
func (ix *Indexer) apply(doc *document.Document) int {
	triples := document.Triples(doc)
	ix.service.ReplaceSubject(doc.Subject(), triples)

	// Newest registration wins; a document that dropped its id loses it.
	ix.service.RemoveIdentifierAt(doc.Path)
	if doc.ID != "" {
		ix.service.SetIdentifier(doc.ID, doc.Path)
	}

	return len(triples)
}
