package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveDocuments expands include glob patterns to concrete document files
// under the vault root. Patterns use doublestar syntax, so "**/*.md"
// matches recursively. Exclude entries name directories to skip anywhere in
// the tree.
//
// Returned paths are vault-relative with forward slashes, deduplicated and
// sorted. An empty result is not an error; a vault with no matching
// documents is legitimate.
func ResolveDocuments(vaultDir string, include, exclude []string) ([]string, error) {
	info, err := os.Stat(vaultDir)
	if err != nil {
		return nil, fmt.Errorf("vault directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path is not a directory: %s", vaultDir)
	}

	fsys := os.DirFS(vaultDir)

	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if seen[match] || isExcluded(match, exclude) {
				continue
			}

			// Patterns like "**" can match directories; only files are documents
			info, err := fs.Stat(fsys, match)
			if err != nil || info.IsDir() {
				continue
			}

			seen[match] = true
			resolved = append(resolved, match)
		}
	}

	sort.Strings(resolved)
	return resolved, nil
}

// isExcluded reports whether a vault-relative path sits inside an excluded
// or hidden directory. Hidden directories are skipped to match the watcher.
func isExcluded(relPath string, exclude []string) bool {
	dir := path.Dir(relPath)
	if dir == "." {
		return false
	}

	for _, seg := range strings.Split(dir, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
		for _, name := range exclude {
			if seg == name {
				return true
			}
		}
	}
	return false
}
