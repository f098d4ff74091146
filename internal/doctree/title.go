package doctree

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// firstHeading parses the document and returns the text of its first level-1
// heading. Inline markup inside the heading is flattened to plain text.
func firstHeading(source []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		heading, ok := n.(*gmast.Heading)
		if !ok || heading.Level != 1 {
			return gmast.WalkContinue, nil
		}
		title = flattenText(heading, source)
		return gmast.WalkStop, nil
	})
	return title
}

// flattenText collects the raw text segments beneath a node.
func flattenText(node gmast.Node, source []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(node, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := n.(*gmast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
