package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownConverter = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
)

// renderMarkdown converts Markdown source to HTML with GitHub-flavored
// tables, strike-through, and hard line wraps (§4.1).
func renderMarkdown(source string) (htmlOut string, errText string) {
	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Sprintf("markdown: %v", err)
	}
	return buf.String(), ""
}
