// Package watcher implements the filesystem-watch glue the `watch` CLI
// subcommand (§6 expansion) uses to resubmit changed files: a debounced,
// glob-filtered batch of changed paths built on fsnotify, exactly as the
// teacher's dev-server watcher does, generalized from fixed go/tsx/css
// extensions to the caller-supplied --patterns/--ignore-patterns globs.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Event is one changed file detected by the watcher.
type Event struct {
	Path string
}

// debounce is how long the watcher waits for a burst of events to go quiet
// before delivering a batch.
const debounce = 50 * time.Millisecond

// Watcher monitors a directory tree for changes to files matching Patterns
// and not matching IgnorePatterns, debouncing bursts into a single batch.
type Watcher struct {
	root           string
	patterns       []string
	ignorePatterns []string
	onChange       func([]Event)
	fsw            *fsnotify.Watcher
	done           chan struct{}
}

// New creates a Watcher rooted at root. An empty patterns list matches
// every file; ignorePatterns are checked first and always win, both
// matched with doublestar semantics against root-relative, slash-separated
// paths.
func New(root string, patterns, ignorePatterns []string, onChange func([]Event)) *Watcher {
	return &Watcher{
		root:           root,
		patterns:       patterns,
		ignorePatterns: ignorePatterns,
		onChange:       onChange,
		done:           make(chan struct{}),
	}
}

// Start begins watching the directory tree. It walks root to add all
// non-ignored directories, then starts a goroutine to process events.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	err = filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if d.IsDir() {
			if shouldIgnoreDir(w.root, path) {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return err
	}

	go w.loop()
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	if w.fsw != nil {
		w.fsw.Close()
	}
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]struct{})
	timer := time.NewTimer(0)
	timer.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.toMatch(ev); ok {
				pending[path] = struct{}{}
				timer.Reset(debounce)
			}

		case <-timer.C:
			batch := make([]Event, 0, len(pending))
			for p := range pending {
				batch = append(batch, Event{Path: p})
			}
			pending = make(map[string]struct{})
			w.onChange(batch)

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Ignore watcher errors — not much we can do mid-watch.
		}
	}
}

// toMatch converts an fsnotify event into a matched path, if relevant. As a
// side effect, newly created directories are added to the watch list.
func (w *Watcher) toMatch(ev fsnotify.Event) (string, bool) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return "", false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			filepath.WalkDir(ev.Name, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if shouldIgnoreDir(w.root, path) {
						return filepath.SkipDir
					}
					w.fsw.Add(path)
				}
				return nil
			})
			return "", false
		}
	}

	if !w.matches(ev.Name) {
		return "", false
	}
	return ev.Name, true
}

// matches applies ignorePatterns first (always win), then patterns (empty
// means match everything), against the path relative to root.
func (w *Watcher) matches(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)

	for _, pat := range w.ignorePatterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	if len(w.patterns) == 0 {
		return true
	}
	for _, pat := range w.patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// shouldIgnoreDir returns true if the directory should not be watched.
func shouldIgnoreDir(root, path string) bool {
	name := filepath.Base(path)

	// Hidden directories (.git, .codechat, etc.)
	if strings.HasPrefix(name, ".") && path != root {
		return true
	}

	if name == "node_modules" {
		return true
	}

	return false
}
