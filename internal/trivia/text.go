package trivia

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// PlainText decodes HTML entities, drops markup and collapses whitespace.
// The API returns question and answer texts HTML-encoded.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "&<") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}
