// Package report extracts structure from research report markdown.
package report

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Link is one URL referenced by a report, with the text it was linked from.
type Link struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Links walks the markdown AST and returns the external URLs the report
// references, in document order with duplicates removed. Chat and manual
// reports carry no structured citations, so this is what the CLI shows as
// the source list for them.
func Links(markdown string) []Link {
	source := []byte(markdown)
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var links []Link
	seen := make(map[string]bool)
	add := func(title, url string) {
		if !isExternalURL(url) || seen[url] {
			return
		}
		seen[url] = true
		links = append(links, Link{Title: title, URL: url})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			add(nodeText(v, source), string(v.Destination))
		case *ast.Image:
			add(nodeText(v, source), string(v.Destination))
		case *ast.AutoLink:
			target := string(v.Label(source))
			if len(v.Protocol) > 0 && !strings.HasPrefix(target, string(v.Protocol)) {
				target = string(v.Protocol) + target
			}
			add("", target)
		}
		return ast.WalkContinue, nil
	})
	return links
}

// nodeText concatenates the direct text children of a node.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return sb.String()
}

// isExternalURL reports whether target is an http:// or https:// URL.
func isExternalURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
