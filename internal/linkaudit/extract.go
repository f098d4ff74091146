// Package linkaudit checks that links between markdown documents resolve
// inside the scanned source tree. It covers what the manifest's navigation
// rules cannot see: cross-references written in the documents themselves.
package linkaudit

import (
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Kind classifies where a link destination was found.
type Kind string

const (
	KindInline              Kind = "inline"
	KindImage               Kind = "image"
	KindAuto                Kind = "auto"
	KindReferenceDefinition Kind = "reference_definition"
)

// Link is one link-like construct found in a markdown body.
type Link struct {
	Kind        Kind
	Destination string
}

// ExtractLinks parses a markdown body and collects link-like constructs.
// This is an analysis API; it does not attempt to re-render markdown.
func ExtractLinks(body []byte) []Link {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, Link{Kind: KindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			links = append(links, Link{Kind: KindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			// Reference-style links arrive resolved to a Link node.
			links = append(links, Link{Kind: KindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not in the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, Link{Kind: KindReferenceDefinition, Destination: string(ref.Destination())})
	}

	return links
}
