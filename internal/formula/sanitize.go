package formula

import (
	"strings"

	"golang.org/x/net/html"
)

// sanitizeCaveats strips any HTML markup out of a caveats string before it
// reaches a terminal. Formula caveats are free-form text lifted straight out
// of a Ruby heredoc; nothing stops an upstream formula from embedding raw
// HTML (copy-pasted from a project's README, say), and printing tags
// verbatim clutters the output a user actually wants to read.
//
// Plain text with no markup passes through unchanged.
func sanitizeCaveats(s string) string {
	if s == "" || !strings.ContainsRune(s, '<') {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var sb strings.Builder
	extractCaveatsText(doc, &sb)
	return strings.TrimSpace(sb.String())
}

func extractCaveatsText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractCaveatsText(c, sb)
	}
}
