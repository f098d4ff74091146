package manifest

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayLabel returns the label to render for the item, deriving one from
// the document path when the manifest omits it.
func (n NavItem) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return TitleFromPath(n.Path)
}

// TitleFromPath derives a human title from a document path:
// "getting_started/first-steps.md" becomes "First Steps". Index documents
// take their title from the containing directory.
func TitleFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	if strings.EqualFold(base, "index") || base == "README" {
		if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" {
			base = dir
		}
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	// cases.Caser is stateful, so build one per call instead of sharing.
	return cases.Title(language.English).String(base)
}

// WalkNav visits every navigation item depth-first in manifest order,
// passing the section labels above it.
func (m *Manifest) WalkNav(fn func(trail []string, item NavItem)) {
	var walk func(items []NavItem, trail []string)
	walk = func(items []NavItem, trail []string) {
		for _, item := range items {
			fn(trail, item)
			if !item.IsLeaf() {
				next := make([]string, len(trail)+1)
				copy(next, trail)
				next[len(trail)] = item.Label
				walk(item.Children, next)
			}
		}
	}
	walk(m.Nav, nil)
}
