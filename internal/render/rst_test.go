package render

import (
	"strings"
	"testing"
)

func TestRenderRSTSectionTitles(t *testing.T) {
	src := "Title\n=====\n\nSubtitle\n--------\n\nSome text.\n"
	html, warnings := renderRST(src)
	if warnings != "" {
		t.Fatalf("unexpected warnings: %s", warnings)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Fatalf("expected an h1, got %s", html)
	}
	if !strings.Contains(html, "<h2>Subtitle</h2>") {
		t.Fatalf("expected an h2, got %s", html)
	}
}

func TestRenderRSTInlineMarkup(t *testing.T) {
	html, _ := renderRST("This is **bold**, *emphasis*, and ``code``.\n")
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Fatalf("expected strong markup, got %s", html)
	}
	if !strings.Contains(html, "<em>emphasis</em>") {
		t.Fatalf("expected emphasis markup, got %s", html)
	}
	if !strings.Contains(html, "<code>code</code>") {
		t.Fatalf("expected literal markup, got %s", html)
	}
}

func TestRenderRSTBulletList(t *testing.T) {
	html, _ := renderRST("- one\n- two\n- three\n")
	if !strings.Contains(html, "<ul>") || !strings.Contains(html, "<li>one</li>") {
		t.Fatalf("expected a bullet list, got %s", html)
	}
}

func TestRenderRSTLiteralBlock(t *testing.T) {
	src := "Here is code::\n\n  x = 1\n  y = 2\n\nAfter.\n"
	html, _ := renderRST(src)
	if !strings.Contains(html, "<pre class=\"literal-block\">x = 1\ny = 2</pre>") {
		t.Fatalf("expected a literal block, got %s", html)
	}
	if !strings.Contains(html, "<p>After.</p>") {
		t.Fatalf("expected the trailing paragraph, got %s", html)
	}
}

func TestRenderRSTUnclosedLiteralBlockWarns(t *testing.T) {
	_, warnings := renderRST("Dangling marker::\n")
	if warnings == "" {
		t.Fatal("expected a warning for a literal-block marker with no block")
	}
}

func TestRenderRSTUnterminatedEmphasisWarns(t *testing.T) {
	html, warnings := renderRST("*hi\n")
	if !strings.Contains(warnings, "Inline emphasis start-string without end-string.") {
		t.Fatalf("expected an unterminated start-string warning, got %q", warnings)
	}
	if html == "" {
		t.Fatal("expected HTML to still be rendered alongside the warning")
	}
}

func TestRenderRSTNeverHalts(t *testing.T) {
	// Malformed or ambiguous input should still produce output, never an
	// error — the halt level is disabled per the component's contract.
	html, _ := renderRST("*unterminated emphasis and ``unterminated literal\n")
	if html == "" {
		t.Fatal("expected rendering to proceed despite malformed markup")
	}
}
