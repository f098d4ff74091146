// Package doctree scans the documentation source directory into an indexed
// tree. Navigation and redirect validation resolve manifest paths against
// it, and watch mode uses its content fingerprints to skip unchanged
// documents.
package doctree

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// DefaultDocsDir is the source directory scanned when none is configured.
const DefaultDocsDir = "docs"

// ignoreMarker inside a directory excludes that directory from the scan.
const ignoreMarker = ".docignore"

// Doc represents a discovered documentation file or asset.
type Doc struct {
	Path         string // absolute path to the file
	RelativePath string // slash-separated path relative to the docs dir
	Name         string // file name without extension
	Extension    string
	Title        string // first level-1 heading, empty for assets or untitled docs
	Fingerprint  string // content fingerprint, empty for assets
	IsAsset      bool
}

// Tree is the indexed scan result.
type Tree struct {
	root  string
	docs  []Doc
	byRel map[string]int
}

// Root returns the scanned docs directory.
func (t *Tree) Root() string { return t.root }

// Docs returns every discovered file in walk order.
func (t *Tree) Docs() []Doc { return t.docs }

// Markdown returns only the markdown documents in walk order.
func (t *Tree) Markdown() []Doc {
	var out []Doc
	for _, d := range t.docs {
		if !d.IsAsset {
			out = append(out, d)
		}
	}
	return out
}

// Has reports whether the slash-separated relative path exists in the tree.
func (t *Tree) Has(relPath string) bool {
	_, ok := t.byRel[relPath]
	return ok
}

// Get returns the document at the slash-separated relative path.
func (t *Tree) Get(relPath string) (Doc, bool) {
	idx, ok := t.byRel[relPath]
	if !ok {
		return Doc{}, false
	}
	return t.docs[idx], true
}

// Len returns the number of discovered files.
func (t *Tree) Len() int { return len(t.docs) }

// Scanner walks a documentation source directory.
type Scanner struct {
	root string
}

// NewScanner creates a scanner rooted at the docs source directory.
func NewScanner(root string) *Scanner {
	if root == "" {
		root = DefaultDocsDir
	}
	return &Scanner{root: root}
}

// Scan walks the docs directory. Markdown documents are read once to extract
// their display title and content fingerprint; assets are indexed by path
// only. Hidden entries and directories carrying an ignore marker are skipped.
func (s *Scanner) Scan() (*Tree, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, derrors.New(derrors.CategoryFileSystem, derrors.SeverityFatal, "docs directory not found").
			WithContext("path", s.root)
	}

	tree := &Tree{root: s.root, byRel: make(map[string]int)}

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == s.root {
				return nil
			}
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			if _, err := os.Stat(filepath.Join(path, ignoreMarker)); err == nil {
				slog.Debug("Skipping ignored directory", logfields.Path(path))
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		isMarkdown := isMarkdownFile(path)
		if !isMarkdown && !isAsset(path) {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		doc := Doc{
			Path:         path,
			RelativePath: relPath,
			Name:         strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
			Extension:    filepath.Ext(info.Name()),
			IsAsset:      !isMarkdown,
		}

		if isMarkdown {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc.Title = firstHeading(content)
			doc.Fingerprint = mdfp.CalculateFingerprintFromParts("", string(content))
		}

		tree.byRel[relPath] = len(tree.docs)
		tree.docs = append(tree.docs, doc)

		slog.Debug("Discovered file", logfields.Path(relPath), slog.Bool("asset", doc.IsAsset))
		return nil
	})
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityFatal, "docs directory walk failed").
			WithContext("path", s.root)
	}

	slog.Debug("Docs scan complete", logfields.DocsDir(s.root), slog.Int("files", tree.Len()))
	return tree, nil
}

// isMarkdownFile checks if a file is a markdown file.
func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}

// isAsset checks if a file is an asset referenced by documents.
func isAsset(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	assetExtensions := []string{
		// Images
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico",
		// Documents
		".pdf",
		// Video
		".mp4", ".webm", ".ogv",
		// Other
		".csv", ".json", ".yaml", ".yml", ".xml", ".css", ".js",
	}
	for _, assetExt := range assetExtensions {
		if ext == assetExt {
			return true
		}
	}
	return false
}
