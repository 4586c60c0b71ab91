package render

import (
	"strings"
	"testing"
)

func TestRenderMarkdownBasics(t *testing.T) {
	html, errText := renderMarkdown("# Title\n\n**bold** and ~~gone~~\n")
	if errText != "" {
		t.Fatalf("unexpected error: %s", errText)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Fatalf("expected a heading, got %s", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Fatalf("expected bold markup, got %s", html)
	}
	if !strings.Contains(html, "<del>gone</del>") {
		t.Fatalf("expected strikethrough markup, got %s", html)
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	html, _ := renderMarkdown(src)
	if !strings.Contains(html, "<table>") {
		t.Fatalf("expected a table, got %s", html)
	}
}

func TestRenderMarkdownHardWraps(t *testing.T) {
	html, _ := renderMarkdown("line one\nline two\n")
	if !strings.Contains(html, "<br") {
		t.Fatalf("expected a hard line break, got %s", html)
	}
}
