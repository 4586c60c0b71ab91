package render

import (
	"embed"
	"fmt"
	"html"
	"regexp"
	"strings"
)

//go:embed style/rst.css style/code.css
var styleFS embed.FS

// Stylesheet returns the bundled CSS for "rst" or "code". The renderers do
// not embed it in their output, and no handler in this repository serves it.
func Stylesheet(name string) ([]byte, error) {
	return styleFS.ReadFile("style/" + name + ".css")
}

// rstSectionChars lists the punctuation characters accepted as section-title
// underlines. Their order here carries no meaning: heading levels are
// assigned in the order each character is first used in the document (the
// same "first encountered, first assigned" rule docutils uses, since rST
// does not fix a meaning to any particular character).
const rstSectionChars = "=-~^\"'`#*+.:_"

var (
	reStrong  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reEm      = regexp.MustCompile(`\*([^*]+)\*`)
	reLiteral = regexp.MustCompile("``([^`]+)``")
)

// renderRST converts a subset of reStructuredText to HTML: section titles,
// paragraphs, bullet lists, and literal blocks, with inline **strong**,
// *emphasis*, and ``literal`` markup. It never halts on malformed input —
// per §4.1 the halt level is disabled — and instead collects a warnings
// string describing anything it could not make sense of.
func renderRST(source string) (htmlOut string, warnings string) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")

	var body strings.Builder
	var warns []string
	sectionLevels := map[byte]int{}
	nextLevel := 1

	i := 0
	for i < len(lines) {
		line := lines[i]

		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		// Section title: this line, followed by an underline of a single
		// repeated punctuation character at least as long as the title.
		if i+1 < len(lines) && isSectionUnderline(lines[i+1], line) {
			ch := lines[i+1][0]
			level, known := sectionLevels[ch]
			if !known {
				level = nextLevel
				sectionLevels[ch] = level
				nextLevel++
			}
			titleHTML, warn := inline(strings.TrimSpace(line))
			if warn != "" {
				warns = append(warns, warn)
			}
			fmt.Fprintf(&body, "<h%d>%s</h%d>\n", level, titleHTML, level)
			i += 2
			continue
		}

		// Bullet list.
		if isBulletLine(line) {
			body.WriteString("<ul>\n")
			for i < len(lines) && isBulletLine(lines[i]) {
				item := strings.TrimSpace(lines[i][1:])
				itemHTML, warn := inline(item)
				if warn != "" {
					warns = append(warns, warn)
				}
				fmt.Fprintf(&body, "<li>%s</li>\n", itemHTML)
				i++
			}
			body.WriteString("</ul>\n")
			continue
		}

		// Paragraph, possibly introducing a literal block via a trailing "::".
		paraLines := []string{line}
		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" && !isBulletLine(lines[i]) &&
			!(i+1 < len(lines) && isSectionUnderline(lines[i+1], lines[i])) {
			paraLines = append(paraLines, lines[i])
			i++
		}
		para := strings.Join(paraLines, " ")

		if strings.HasSuffix(strings.TrimSpace(para), "::") {
			para = strings.TrimSuffix(strings.TrimSpace(para), "::")
			if para != "" {
				paraHTML, warn := inline(para)
				if warn != "" {
					warns = append(warns, warn)
				}
				fmt.Fprintf(&body, "<p>%s</p>\n", paraHTML)
			}
			block, consumed := readLiteralBlock(lines[i:])
			if consumed == 0 {
				warns = append(warns, "literal block marker '::' with no indented block following")
			} else {
				fmt.Fprintf(&body, "<pre class=\"literal-block\">%s</pre>\n", html.EscapeString(block))
				i += consumed
			}
			continue
		}

		paraHTML, warn := inline(para)
		if warn != "" {
			warns = append(warns, warn)
		}
		fmt.Fprintf(&body, "<p>%s</p>\n", paraHTML)
	}

	return body.String(), strings.Join(warns, "\n")
}

// isSectionUnderline reports whether candidate is a valid rST section
// underline (or overline) for title: a single repeated punctuation
// character, at least as long as title.
func isSectionUnderline(candidate, title string) bool {
	trimmed := strings.TrimRight(candidate, "\n")
	if trimmed == "" || len(trimmed) < len(strings.TrimSpace(title)) {
		return false
	}
	ch := trimmed[0]
	if !strings.ContainsRune(rstSectionChars, rune(ch)) {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != ch {
			return false
		}
	}
	return true
}

func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ")
}

// readLiteralBlock consumes leading indented lines as a literal block,
// returning the dedented text and the number of source lines consumed.
func readLiteralBlock(lines []string) (string, int) {
	var block []string
	consumed := 0
	started := false
	for consumed < len(lines) {
		line := lines[consumed]
		nextIndented := consumed+1 < len(lines) && strings.HasPrefix(lines[consumed+1], "  ")

		if strings.TrimSpace(line) == "" {
			switch {
			case started && nextIndented:
				block = append(block, "")
				consumed++
				continue
			case !started && nextIndented:
				// The blank separator line rST requires between the "::"
				// paragraph and the indented block; not part of its text.
				consumed++
				continue
			default:
			}
			break
		}
		if !strings.HasPrefix(line, "  ") {
			break
		}
		started = true
		block = append(block, strings.TrimPrefix(line, "  "))
		consumed++
	}
	return strings.Join(block, "\n"), consumed
}

// inline applies inline markup substitution (**strong**, *emphasis*,
// ``literal``) after HTML-escaping the literal text. A "*" left over once
// every well-formed **strong**/*emphasis* span has been consumed is an
// inline-markup start-string with no matching end-string; docutils itself
// reports this as a warning rather than halting, and so do we.
func inline(text string) (htmlOut string, warning string) {
	escaped := html.EscapeString(text)
	escaped = reLiteral.ReplaceAllString(escaped, "<code>$1</code>")
	escaped = reStrong.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = reEm.ReplaceAllString(escaped, "<em>$1</em>")
	if strings.ContainsRune(escaped, '*') {
		warning = "Inline emphasis start-string without end-string."
	}
	return escaped, warning
}
