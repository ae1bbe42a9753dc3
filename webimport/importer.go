package webimport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ImportDir is the vault subdirectory imported pages are written to.
	ImportDir = "imports"

	defaultUserAgent   = "semdex/1.0 (+https://github.com/c360studio/semdex)"
	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	defaultTimeout     = 30 * time.Second
)

// ImportResult describes a page written into the vault.
type ImportResult struct {
	// Path is the vault-relative path of the written document.
	Path string
	// Title is the extracted page title.
	Title string
	// Size is the number of bytes written.
	Size int
}

// Importer fetches web pages, converts them to markdown and writes them
// into the vault. The indexer picks the written file up like any other
// document, either on the next rebuild or through the watcher.
type Importer struct {
	fetcher   *Fetcher
	converter *Converter
	vaultDir  string
	logger    *slog.Logger

	now func() time.Time
}

// NewImporter creates an importer writing into the given vault directory.
func NewImporter(vaultDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		fetcher:   NewFetcher(defaultTimeout, defaultUserAgent, defaultMaxBodySize),
		converter: NewConverter(),
		vaultDir:  vaultDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Import fetches rawURL and writes it to imports/<slug>.md inside the
// vault. Importing the same URL again overwrites the previous document.
func (i *Importer) Import(ctx context.Context, rawURL string) (*ImportResult, error) {
	fetched, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	converted, err := i.converter.Convert(fetched.Body, rawURL)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", rawURL, err)
	}

	title := converted.Title
	if title == "" {
		title = ExtractDomain(rawURL)
	}

	slug := Slug(rawURL)
	relPath := path.Join(ImportDir, slug+".md")

	content, err := renderDocument(slug, title, rawURL, i.now().UTC(), converted.Markdown)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}

	absPath := filepath.Join(i.vaultDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create import directory: %w", err)
	}
	if err := os.WriteFile(absPath, content, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", relPath, err)
	}

	i.logger.Info("Imported web page",
		"url", rawURL,
		"path", relPath,
		"title", title,
		"bytes", len(content))

	return &ImportResult{
		Path:  relPath,
		Title: title,
		Size:  len(content),
	}, nil
}

// frontmatter is the metadata block written at the top of imported
// documents. The source URL marks the document as an import and the
// slug doubles as its identifier.
type frontmatter struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Source   string `yaml:"source"`
	Imported string `yaml:"imported"`
}

// renderDocument assembles the markdown file for an imported page.
func renderDocument(slug, title, sourceURL string, importedAt time.Time, markdown string) ([]byte, error) {
	fm := frontmatter{
		ID:       slug,
		Title:    title,
		Source:   sourceURL,
		Imported: importedAt.Format("2006-01-02"),
	}

	data, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf []byte
	buf = append(buf, "---\n"...)
	buf = append(buf, data...)
	buf = append(buf, "---\n\n"...)
	buf = append(buf, markdown...)
	if len(markdown) > 0 && markdown[len(markdown)-1] != '\n' {
		buf = append(buf, '\n')
	}
	return buf, nil
}
