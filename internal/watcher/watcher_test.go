package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitBatch waits up to timeout for a batch of events on ch. Returns the
// batch and true, or nil and false if the timeout expires.
func waitBatch(ch <-chan []Event, timeout time.Duration) ([]Event, bool) {
	select {
	case batch := <-ch:
		return batch, true
	case <-time.After(timeout):
		return nil, false
	}
}

func TestMatchingPatternProducesEvent(t *testing.T) {
	dir := t.TempDir()

	events := make(chan []Event, 10)
	w := New(dir, []string{"*.md"}, nil, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "notes.md")
	os.WriteFile(path, []byte("# hi"), 0644)

	batch, ok := waitBatch(events, 2*time.Second)
	if !ok {
		t.Fatal("expected an event for a matching .md file, got none")
	}
	if batch[0].Path != path {
		t.Fatalf("expected path %q, got %q", path, batch[0].Path)
	}
}

func TestNonMatchingPatternIgnored(t *testing.T) {
	dir := t.TempDir()

	events := make(chan []Event, 10)
	w := New(dir, []string{"*.md"}, nil, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "notes.txt")
	os.WriteFile(path, []byte("hi"), 0644)

	if _, ok := waitBatch(events, 500*time.Millisecond); ok {
		t.Fatal("expected no event for a non-matching file, but got one")
	}
}

func TestIgnorePatternsWinOverPatterns(t *testing.T) {
	dir := t.TempDir()

	events := make(chan []Event, 10)
	w := New(dir, []string{"*.md"}, []string{"draft-*.md"}, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "draft-notes.md")
	os.WriteFile(path, []byte("# draft"), 0644)

	if _, ok := waitBatch(events, 500*time.Millisecond); ok {
		t.Fatal("expected draft-*.md to be ignored, but got an event")
	}
}

func TestEmptyPatternsMatchesEverything(t *testing.T) {
	dir := t.TempDir()

	events := make(chan []Event, 10)
	w := New(dir, nil, nil, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "anything.xyz")
	os.WriteFile(path, []byte("data"), 0644)

	if _, ok := waitBatch(events, 2*time.Second); !ok {
		t.Fatal("expected an event with no patterns configured, got none")
	}
}

func TestIgnoredDirectoriesSkipped(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{".codechat", ".git", "node_modules"} {
		os.MkdirAll(filepath.Join(dir, name), 0755)
	}

	events := make(chan []Event, 10)
	w := New(dir, nil, nil, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, name := range []string{".codechat", ".git", "node_modules"} {
		path := filepath.Join(dir, name, "file.md")
		os.WriteFile(path, []byte("# x"), 0644)
	}

	if _, ok := waitBatch(events, 500*time.Millisecond); ok {
		t.Fatal("expected no event for files in ignored directories, but got one")
	}
}

func TestNewSubdirectoryWatched(t *testing.T) {
	dir := t.TempDir()

	events := make(chan []Event, 10)
	w := New(dir, nil, nil, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	subdir := filepath.Join(dir, "chapters", "intro")
	os.MkdirAll(subdir, 0755)

	// Give the watcher time to register the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(subdir, "index.md")
	os.WriteFile(path, []byte("# intro"), 0644)

	batch, ok := waitBatch(events, 2*time.Second)
	if !ok {
		t.Fatal("expected an event for a file in a new subdirectory, got none")
	}
	if batch[0].Path != path {
		t.Fatalf("expected path %q, got %q", path, batch[0].Path)
	}
}
