package linkaudit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// DefaultConcurrency bounds parallel document audits.
const DefaultConcurrency = 8

// Auditor checks every internal link in a scanned documentation tree.
type Auditor struct {
	tree        *doctree.Tree
	concurrency int
}

// New creates an auditor over one scanned tree.
func New(tree *doctree.Tree) *Auditor {
	return &Auditor{tree: tree, concurrency: DefaultConcurrency}
}

// WithConcurrency bounds how many documents are audited in parallel.
func (a *Auditor) WithConcurrency(n int) *Auditor {
	if n > 0 {
		a.concurrency = n
	}
	return a
}

// Audit reads every markdown document and reports internal links that do not
// resolve inside the tree. External URLs are out of scope here.
func (a *Auditor) Audit(ctx context.Context) (*validate.Result, error) {
	docs := a.tree.Markdown()
	slog.Debug("Starting link audit", logfields.DocsDir(a.tree.Root()), slog.Int("docs", len(docs)))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var issues []validate.Issue

	for _, doc := range docs {
		// Acquire before spawning to avoid goroutine backlogs.
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(doc doctree.Doc) {
			defer wg.Done()
			defer func() { <-sem }()

			found, err := a.auditDoc(doc)
			if err != nil {
				slog.Warn("Failed to audit document", logfields.Path(doc.RelativePath), logfields.Error(err))
				return
			}
			if len(found) == 0 {
				return
			}
			mu.Lock()
			issues = append(issues, found...)
			mu.Unlock()
		}(doc)
	}
	wg.Wait()

	// Workers finish in arbitrary order; sort for stable output.
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		return issues[i].Message < issues[j].Message
	})

	return &validate.Result{Issues: issues, DocsTotal: a.tree.Len()}, nil
}

// auditDoc extracts and resolves the links of a single document.
func (a *Auditor) auditDoc(doc doctree.Doc) ([]validate.Issue, error) {
	body, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, err
	}

	var issues []validate.Issue
	for _, link := range ExtractLinks(body) {
		target, check := a.resolve(doc, link.Destination)
		if !check {
			continue
		}
		if a.tree.Has(target) {
			continue
		}
		// guide/ style directory links land on the section index.
		if a.tree.Has(path.Join(target, "index.md")) {
			continue
		}
		issues = append(issues, validate.Issue{
			Path:     doc.RelativePath,
			Severity: validate.SeverityWarning,
			Rule:     validate.RuleDocLink,
			Message:  fmt.Sprintf("link %q does not resolve to a document", link.Destination),
			Detail:   fmt.Sprintf("Resolved to %q, which is not in the source tree.", target),
		})
	}
	return issues, nil
}

// resolve turns a link destination into a tree-relative path. The second
// return is false for links the audit does not cover: external URLs, pure
// anchors, and site-absolute paths left to the generator.
func (a *Auditor) resolve(doc doctree.Doc, dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", false
	}

	// Strip fragment and query up front so "page.md#intro" resolves.
	dest, _, _ = strings.Cut(dest, "#")
	dest, _, _ = strings.Cut(dest, "?")
	if dest == "" {
		return "", false // pure anchor
	}

	if u, err := url.Parse(dest); err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if strings.HasPrefix(dest, "/") {
		return "", false // site-absolute, resolved by the generator
	}

	// Destinations escaping the tree keep their ../ prefix and fail the
	// existence check, which is exactly the report we want.
	return path.Clean(path.Join(path.Dir(doc.RelativePath), dest)), true
}
