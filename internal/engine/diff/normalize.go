package diff

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// indentUnit is the per-depth indentation of normalized lines.
const indentUnit = "  "

// voidElements never take a closing tag, so they do not open a level.
var voidElements = map[string]bool{
	"img":   true,
	"br":    true,
	"hr":    true,
	"input": true,
	"meta":  true,
	"link":  true,
}

// Normalize converts an HTML blob into a deterministic sequence of lines.
//
// Each opening tag, closing tag and non-empty line of text becomes its own
// line, indented by nesting depth. Input that cannot be tokenized, or contains no
// tags, is split into raw lines instead.
func Normalize(src string) []string {
	lines, ok := tokenizeLines(src)
	if !ok {
		return RawLines(src)
	}
	return lines
}

// tokenizeLines pretty-prints src tag by tag.
// Returns false if tokenizing failed or produced no tags.
func tokenizeLines(src string) ([]string, bool) {
	z := html.NewTokenizer(strings.NewReader(src))

	var lines []string
	depth := 0
	sawTag := false

	emit := func(text string) {
		lines = append(lines, strings.Repeat(indentUnit, depth)+text)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return nil, false
			}
			return lines, sawTag

		case html.StartTagToken:
			sawTag = true
			raw := strings.TrimSpace(string(z.Raw()))
			name, _ := z.TagName()
			emit(raw)
			if !voidElements[string(name)] {
				depth++
			}

		case html.SelfClosingTagToken:
			sawTag = true
			emit(strings.TrimSpace(string(z.Raw())))

		case html.EndTagToken:
			sawTag = true
			if depth > 0 {
				depth--
			}
			emit(strings.TrimSpace(string(z.Raw())))

		case html.TextToken:
			for _, piece := range strings.Split(string(z.Raw()), "\n") {
				if text := strings.TrimSpace(piece); text != "" {
					emit(text)
				}
			}

		case html.CommentToken, html.DoctypeToken:
			emit(strings.TrimSpace(string(z.Raw())))
		}
	}
}

// RawLines splits text into lines without interpreting markup.
// Line endings are normalized and blank lines are dropped.
func RawLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
