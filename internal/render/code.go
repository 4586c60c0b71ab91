package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var leadingCommentMarker = regexp.MustCompile(`^\s*(//|#|--|;|"|')\s?`)

// renderCode implements §4.1's code-to-rST converter: language detection by
// extension, comments rendered through the rST renderer, code rendered as
// Chroma-highlighted literal blocks. The result is a sequence of
// "comment-block" and "code-block" div fragments; no stylesheet is included
// in the output.
func renderCode(filePath, source string) (htmlOut string, errText string) {
	lexer := lexers.Match(filePath)
	if lexer == nil {
		return "", fmt.Sprintf("%s:: ERROR: No converter found for this file.", filePath)
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Sprintf("code: tokenising %s: %v", filePath, err)
	}
	tokens := iterator.Tokens()

	var body strings.Builder
	style := styles.Get("monokailight")
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(chromahtml.WithClasses(false))

	flushComment := func(text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		stripped := stripCommentMarkers(text)
		rst, _ := renderRST(stripped)
		body.WriteString("<div class=\"comment-block\">")
		body.WriteString(rst)
		body.WriteString("</div>\n")
	}

	flushCode := func(run []chroma.Token) {
		if len(run) == 0 {
			return
		}
		body.WriteString("<div class=\"code-block\">")
		if err := formatter.Format(&body, style, chroma.Literator(run...)); err != nil {
			body.WriteString(fmt.Sprintf("<pre>%s</pre>", stripCommentMarkers(tokensText(run))))
		}
		body.WriteString("</div>\n")
	}

	var commentBuf strings.Builder
	var codeRun []chroma.Token

	for _, tok := range tokens {
		if tok.Type.InCategory(chroma.Comment) {
			if len(codeRun) > 0 {
				flushCode(codeRun)
				codeRun = nil
			}
			commentBuf.WriteString(tok.Value)
			continue
		}
		if commentBuf.Len() > 0 {
			flushComment(commentBuf.String())
			commentBuf.Reset()
		}
		codeRun = append(codeRun, tok)
	}
	if commentBuf.Len() > 0 {
		flushComment(commentBuf.String())
	}
	if len(codeRun) > 0 {
		flushCode(codeRun)
	}

	return body.String(), ""
}

// stripCommentMarkers removes the conventional line-comment marker (//, #,
// --, ;, ", ') from each line of a grouped comment run before handing the text to
// the rST renderer, so "// some text" reads as rST prose rather than as a
// literal block.
func stripCommentMarkers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = leadingCommentMarker.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

func tokensText(tokens []chroma.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Value)
	}
	return b.String()
}
