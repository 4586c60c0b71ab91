// Package render implements §4.1's renderer dispatch: selecting a converter
// for a file path (project driver, built-in Markdown/rST/code converter, or
// passthrough) and invoking it, producing HTML plus diagnostics for the
// render worker pool.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"codechat.dev/server/internal/manager"
)

// ProjectConfigName is the file selectRenderer looks for in filePath's
// ancestor directories to recognize a project render (§4.1).
const ProjectConfigName = "codechat_config.yaml"

// kind identifies which converter a glob table entry, or an ancestor
// project-config match, selects.
type kind int

const (
	kindMarkdown kind = iota
	kindRST
	kindHTML
	kindCode
	kindUnsupported
)

// globEntry is one row of the ordered glob-to-converter table (§3): first
// match wins, matched with doublestar semantics against the file's base
// name.
type globEntry struct {
	pattern string
	kind    kind
}

// defaultGlobTable is the built-in glob table. Code-to-rST is deliberately
// last and matches everything, since chroma's lexer registry — not the glob
// table — is what ultimately decides whether an extension is supported.
var defaultGlobTable = []globEntry{
	{"*.md", kindMarkdown},
	{"*.markdown", kindMarkdown},
	{"*.rst", kindRST},
	{"*.htm", kindHTML},
	{"*.html", kindHTML},
	{"*.xhtml", kindHTML},
	{"*", kindCode},
}

// Dispatcher selects and invokes a renderer for a given file, implementing
// manager.Renderer. It holds no mutable state; every call is independent.
type Dispatcher struct {
	// GlobTable overrides the default glob-to-converter table, for tests.
	GlobTable []globEntry
}

// New returns a Dispatcher configured with the built-in glob table.
func New() *Dispatcher {
	return &Dispatcher{GlobTable: defaultGlobTable}
}

// RenderFile implements manager.Renderer. It is the Go encoding of §4.1's
// renderFile: select a converter for filePath, apply the project/dirty
// guard, then invoke the converter and translate its result into a
// manager.RenderOutcome.
func (d *Dispatcher) RenderFile(editorText, filePath string, isDirty bool, onBuild func(string)) manager.RenderOutcome {
	if projectConfigPath, ok := findProjectConfig(filePath); ok {
		if isDirty {
			// Projects require the source to be on disk; a dirty buffer
			// would let a stale on-disk file poison the build.
			return manager.RenderOutcome{WasPerformed: false}
		}
		return renderProject(projectConfigPath, filePath, onBuild)
	}

	switch d.selectGlob(filePath) {
	case kindMarkdown:
		html, err := renderMarkdown(editorText)
		return singleFileOutcome(filePath, html, err)
	case kindRST:
		html, warnings := renderRST(editorText)
		return singleFileOutcome(filePath, html, warnings)
	case kindHTML:
		return manager.RenderOutcome{
			WasPerformed:     true,
			RenderedFilePath: filePath,
			HTML:             editorText,
			HasHTML:          true,
		}
	case kindCode:
		html, err := renderCode(filePath, editorText)
		return singleFileOutcome(filePath, html, err)
	default:
		return manager.RenderOutcome{
			WasPerformed:     true,
			RenderedFilePath: filePath,
			Err:              fmt.Sprintf("%s:: ERROR: No converter found for this file.", filePath),
		}
	}
}

func singleFileOutcome(filePath, html, errText string) manager.RenderOutcome {
	return manager.RenderOutcome{
		WasPerformed:     true,
		RenderedFilePath: filePath,
		HTML:             html,
		HasHTML:          true,
		Err:              errText,
	}
}

// selectGlob walks the glob table in order and returns the first match
// against filePath's base name; kindUnsupported if the table is exhausted
// (never happens with the default table, whose last entry is "*").
func (d *Dispatcher) selectGlob(filePath string) kind {
	table := d.GlobTable
	if table == nil {
		table = defaultGlobTable
	}
	base := filepath.Base(filePath)
	for _, entry := range table {
		if ok, _ := doublestar.Match(entry.pattern, base); ok {
			return entry.kind
		}
	}
	return kindUnsupported
}

// findProjectConfig walks filePath and its ancestor directories looking for
// ProjectConfigName, per §4.1's "first one found designates a project
// render."
func findProjectConfig(filePath string) (string, bool) {
	dir := filepath.Dir(filePath)
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
