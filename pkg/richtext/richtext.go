// Package richtext turns the rich-text markup stored in scene bodies and text
// layers into plain text for terminals and diagram labels.
//
// Content is never validated or rewritten in the project itself; these
// helpers only read it.
package richtext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// blocks end a line of text.
var blocks = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true,
}

// PlainText strips markup from s. Block elements become line breaks, runs of
// spaces collapse, and script and style contents are dropped.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way the text so far is kept.
			return collapse(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if blocks[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blocks[tag] {
				b.WriteByte('\n')
			}
		}
	}
}

// collapse normalizes whitespace within lines and drops empty lines.
func collapse(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Summary returns the plain text of s on one line, cut to at most n runes
// with a trailing ellipsis when it was longer.
func Summary(s string, n int) string {
	text := strings.Join(strings.Fields(PlainText(s)), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
