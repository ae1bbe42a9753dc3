// Package document models vault documents: markdown files with YAML
// frontmatter properties and [[wiki-link]] references. It turns a parsed
// document into the triples and identifier registration the indexes
// consume.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is one parsed vault document.
type Document struct {
	// ID is the document's declared unique identifier from the frontmatter,
	// empty when the document declares none.
	ID string

	// Path is the vault-relative path with forward slashes.
	Path string

	// Name is the file name without extension.
	Name string

	// ContentHash is the sha256 hex digest of the raw content.
	ContentHash string

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time

	// Properties holds the frontmatter in declaration order.
	Properties *Properties

	// Links are the [[wiki-link]] targets found in the body, deduplicated
	// in first-occurrence order.
	Links []string

	// Body is the markdown content after the frontmatter.
	Body string
}

// Properties is an insertion-ordered frontmatter map.
type Properties struct {
	keys   []string
	values map[string]any
}

// NewProperties creates an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Set stores a value. A repeated key keeps its original position.
func (p *Properties) Set(key string, value any) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the raw value for a key.
func (p *Properties) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in declaration order.
func (p *Properties) Keys() []string { return p.keys }

// Len returns the number of properties.
func (p *Properties) Len() int { return len(p.keys) }

// wikiLinkPattern matches [[target]], [[target|alias]], and embeds.
var wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// Parse parses a markdown document. relPath is the vault-relative path;
// malformed or missing frontmatter leaves the whole content as body, never
// an error.
func Parse(relPath string, content []byte, modifiedAt time.Time) (*Document, error) {
	if relPath == "" {
		return nil, fmt.Errorf("parse document: empty path")
	}

	base := filepath.Base(relPath)
	doc := &Document{
		Path:        filepath.ToSlash(relPath),
		Name:        strings.TrimSuffix(base, filepath.Ext(base)),
		ContentHash: ContentHash(content),
		ModifiedAt:  modifiedAt,
		Properties:  NewProperties(),
	}

	str := string(content)
	if strings.HasPrefix(str, "---\n") || strings.HasPrefix(str, "---\r\n") {
		props, body, err := extractFrontmatter(str)
		if err != nil {
			// Unparseable frontmatter demotes the whole file to body.
			doc.Body = str
		} else {
			doc.Properties = props
			doc.Body = body
		}
	} else {
		doc.Body = str
	}

	doc.ID = declaredID(doc.Properties)
	doc.Links = extractLinks(doc.Body)
	return doc, nil
}

// extractFrontmatter parses the YAML frontmatter block, preserving key
// order. Returns the properties, the remaining body, and any error.
func extractFrontmatter(content string) (*Properties, string, error) {
	const delimiter = "---"

	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}

	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	props, err := parseProperties([]byte(yamlContent))
	if err != nil {
		return nil, content, err
	}
	return props, body, nil
}

// parseProperties decodes a YAML mapping into ordered properties. Decoding
// through the node API keeps the author's key order, which plain map
// unmarshaling would lose.
func parseProperties(src []byte) (*Properties, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	props := NewProperties()
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return props, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("parse YAML frontmatter: %w", err)
		}
		props.Set(mapping.Content[i].Value, value)
	}
	return props, nil
}

// declaredID extracts the id property as a string. Numeric ids are
// rendered in their lexical form.
func declaredID(props *Properties) string {
	v, ok := props.Get("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case int:
		return strconv.Itoa(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// extractLinks collects wiki-link targets from the body: the part before
// any |alias or #heading, deduplicated in first-occurrence order.
func extractLinks(body string) []string {
	matches := wikiLinkPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		target := LinkTarget(m[1])
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// LinkTarget normalizes the inside of a wiki link to its document target:
// alias and heading suffixes drop, surrounding space trims.
func LinkTarget(raw string) string {
	target := raw
	if idx := strings.Index(target, "|"); idx >= 0 {
		target = target[:idx]
	}
	if idx := strings.Index(target, "#"); idx >= 0 {
		target = target[:idx]
	}
	return strings.TrimSpace(target)
}

// ContentHash computes the sha256 hex digest of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
