package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	"git.home.luguber.info/inful/docsite/internal/manifest"
)

// NavCmd implements the 'nav' command.
type NavCmd struct {
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Docs   string `help:"Docs directory used to derive titles from document headings"`
}

// navEntry is the JSON shape of one resolved navigation item.
type navEntry struct {
	Label    string     `json:"label"`
	Path     string     `json:"path,omitempty"`
	Children []navEntry `json:"children,omitempty"`
}

// Run executes the nav command.
func (n *NavCmd) Run(_ *Global, root *CLI) error {
	m, _, err := loadManifest(root)
	if err != nil {
		return err
	}

	docsDir := n.Docs
	if docsDir == "" {
		docsDir = filepath.Join(filepath.Dir(root.Config), doctree.DefaultDocsDir)
	}

	// Document headings are optional input: without a readable docs tree the
	// labels still resolve from paths.
	var tree *doctree.Tree
	if t, err := doctree.NewScanner(docsDir).Scan(); err == nil {
		tree = t
	}

	resolved := resolveNav(m.Nav, tree)

	if n.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolved)
	}

	printNav(resolved, 0)
	return nil
}

// resolveNav derives display labels top-down: explicit label, else document
// first heading, else a title derived from the path.
func resolveNav(items []manifest.NavItem, tree *doctree.Tree) []navEntry {
	entries := make([]navEntry, 0, len(items))
	for _, item := range items {
		entry := navEntry{Label: item.Label, Path: item.Path}
		if item.IsLeaf() {
			if entry.Label == "" {
				entry.Label = leafTitle(item.Path, tree)
			}
		} else {
			entry.Children = resolveNav(item.Children, tree)
		}
		entries = append(entries, entry)
	}
	return entries
}

func leafTitle(path string, tree *doctree.Tree) string {
	if tree != nil {
		if doc, ok := tree.Get(path); ok && doc.Title != "" {
			return doc.Title
		}
	}
	return manifest.TitleFromPath(path)
}

func printNav(entries []navEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, entry := range entries {
		if entry.Path != "" {
			fmt.Printf("%s%s  (%s)\n", indent, entry.Label, entry.Path)
			continue
		}
		fmt.Printf("%s%s\n", indent, entry.Label)
		printNav(entry.Children, depth+1)
	}
}
