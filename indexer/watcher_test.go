package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semdex/config"
	"github.com/c360studio/semdex/document"
)

func testWatchConfig() config.WatchConfig {
	return config.WatchConfig{
		Enabled:        true,
		DebounceDelay:  "50ms",
		FileExtensions: []string{".md"},
		ExcludeDirs:    []string{".git"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := config.WatchConfig{
		Enabled:        true,
		DebounceDelay:  "100ms",
		FileExtensions: []string{".md", "txt"},
		ExcludeDirs:    []string{".git"},
	}

	watcher, err := NewWatcher(cfg, tmpDir, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	// Verify extensions are properly set, including dot normalization
	if !watcher.extensions[".md"] {
		t.Error("expected .md extension to be watched")
	}
	if !watcher.extensions[".txt"] {
		t.Error("expected .txt extension to be watched")
	}

	// Verify excludes are properly set
	if !watcher.excludes[".git"] {
		t.Error("expected .git to be excluded")
	}
}

func TestNewWatcher_Defaults(t *testing.T) {
	watcher, err := NewWatcher(config.WatchConfig{}, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	if !watcher.extensions[".md"] {
		t.Error("expected .md watched by default")
	}
	if !watcher.excludes[".git"] || !watcher.excludes[".obsidian"] {
		t.Error("expected default directory excludes")
	}
}

func TestWatcher_FileCreation(t *testing.T) {
	tmpDir := t.TempDir()

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Create a file
	testFile := filepath.Join(tmpDir, "test.md")
	if err := os.WriteFile(testFile, []byte("# Test Document\n\nContent here."), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	// Wait for event
	select {
	case event := <-watcher.Events():
		if event.Operation != WatchOpCreate {
			t.Errorf("expected create operation, got %s", event.Operation)
		}
		if event.Path != "test.md" {
			t.Errorf("expected path test.md, got %s", event.Path)
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for create event")
	}
}

func TestWatcher_FileModification(t *testing.T) {
	tmpDir := t.TempDir()

	// Pre-create the file
	testFile := filepath.Join(tmpDir, "test.md")
	if err := os.WriteFile(testFile, []byte("# Initial Content"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Set the hash for the initial content
	watcher.SetHash("test.md", "initial-hash")

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Modify the file
	if err := os.WriteFile(testFile, []byte("# Modified Content\n\nMore text."), 0644); err != nil {
		t.Fatalf("failed to modify test file: %v", err)
	}

	// Wait for event
	select {
	case event := <-watcher.Events():
		if event.Operation != WatchOpModify {
			t.Errorf("expected modify operation, got %s", event.Operation)
		}
		if event.Path != "test.md" {
			t.Errorf("expected path test.md, got %s", event.Path)
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for modify event")
	}
}

func TestWatcher_FileDeletion(t *testing.T) {
	tmpDir := t.TempDir()

	// Pre-create the file
	testFile := filepath.Join(tmpDir, "test.md")
	if err := os.WriteFile(testFile, []byte("# To Be Deleted"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Set the hash so we track the file
	watcher.SetHash("test.md", "some-hash")

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Delete the file
	if err := os.Remove(testFile); err != nil {
		t.Fatalf("failed to remove test file: %v", err)
	}

	// Wait for event
	select {
	case event := <-watcher.Events():
		if event.Operation != WatchOpDelete {
			t.Errorf("expected delete operation, got %s", event.Operation)
		}
		if event.Path != "test.md" {
			t.Errorf("expected path test.md, got %s", event.Path)
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for delete event")
	}
}

func TestWatcher_IgnoresNonWatchedExtensions(t *testing.T) {
	tmpDir := t.TempDir()

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Create a non-watched file
	testFile := filepath.Join(tmpDir, "test.canvas")
	if err := os.WriteFile(testFile, []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	// Wait briefly - should not receive event
	select {
	case event := <-watcher.Events():
		t.Errorf("unexpected event for non-watched extension: %+v", event)
	case <-time.After(300 * time.Millisecond):
		// Expected - no event for non-watched extension
	}
}

func TestWatcher_IgnoresExcludedDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	// Create excluded directory
	excludedDir := filepath.Join(tmpDir, ".git")
	if err := os.MkdirAll(excludedDir, 0755); err != nil {
		t.Fatalf("failed to create excluded dir: %v", err)
	}

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Create a file in excluded directory
	testFile := filepath.Join(excludedDir, "test.md")
	if err := os.WriteFile(testFile, []byte("# Excluded"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	// Wait briefly - should not receive event
	select {
	case event := <-watcher.Events():
		t.Errorf("unexpected event for file in excluded directory: %+v", event)
	case <-time.After(300 * time.Millisecond):
		// Expected - no event for excluded directory
	}
}

func TestWatcher_HashSuppressesUnchangedContent(t *testing.T) {
	tmpDir := t.TempDir()

	// Pre-create the file
	testFile := filepath.Join(tmpDir, "test.md")
	content := "# Same Content"
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	watcher, err := NewWatcher(testWatchConfig(), tmpDir, testLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Prime the hash cache the way the indexer's rebuild does
	watcher.SetHash("test.md", document.ContentHash([]byte(content)))

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)

	// Touch the file (same content)
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	// Content unchanged, so no event
	select {
	case event := <-watcher.Events():
		t.Errorf("unexpected event when content unchanged: %+v", event)
	case <-time.After(300 * time.Millisecond):
		// Expected
	}
}

func TestWatcher_SetGetHash(t *testing.T) {
	watcher, err := NewWatcher(config.WatchConfig{}, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	// Test SetHash and GetHash
	watcher.SetHash("file.md", "abc123")

	hash, ok := watcher.GetHash("file.md")
	if !ok {
		t.Error("expected hash to exist")
	}
	if hash != "abc123" {
		t.Errorf("expected hash abc123, got %s", hash)
	}

	// Test non-existent
	_, ok = watcher.GetHash("nonexistent.md")
	if ok {
		t.Error("expected hash to not exist for nonexistent file")
	}
}

func TestWatcher_DroppedEvents(t *testing.T) {
	watcher, err := NewWatcher(config.WatchConfig{}, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	// Initially no dropped events
	if watcher.DroppedEvents() != 0 {
		t.Errorf("expected 0 dropped events, got %d", watcher.DroppedEvents())
	}
}
