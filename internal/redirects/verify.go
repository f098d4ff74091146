package redirects

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/manifest"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// Verifier checks emitted stubs against the built site output.
type Verifier struct {
	siteDir string
}

// NewVerifier creates a verifier for one site output directory.
func NewVerifier(siteDir string) *Verifier {
	return &Verifier{siteDir: siteDir}
}

// Verify parses each redirect stub and confirms its refresh target exists in
// the site output. Findings use the manifest validation shape so the CLI can
// render both with one formatter.
func (v *Verifier) Verify(redirects []manifest.Redirect) *validate.Result {
	var issues []validate.Issue
	for _, r := range redirects {
		if issue := v.verifyStub(r); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return &validate.Result{Issues: issues}
}

func (v *Verifier) verifyStub(r manifest.Redirect) *validate.Issue {
	stubRel := HTMLPath(r.From)
	stubAbs := filepath.Join(v.siteDir, filepath.FromSlash(stubRel))

	f, err := os.Open(stubAbs)
	if err != nil {
		return &validate.Issue{
			Path:     r.From,
			Severity: validate.SeverityError,
			Rule:     validate.RuleRedirectStub,
			Message:  fmt.Sprintf("redirect stub %q was not emitted", stubRel),
		}
	}
	defer func() {
		_ = f.Close() // Ignore close errors on read-only operation
	}()

	target, ok := refreshTarget(f)
	if !ok {
		return &validate.Issue{
			Path:     r.From,
			Severity: validate.SeverityError,
			Rule:     validate.RuleRedirectStub,
			Message:  fmt.Sprintf("redirect stub %q has no meta refresh target", stubRel),
		}
	}

	// Fragments survive the hop client-side; existence is checked without them.
	target, _, _ = strings.Cut(target, "#")

	resolved := path.Clean(path.Join(path.Dir(stubRel), target))
	candidate := resolved
	if !strings.HasSuffix(candidate, ".html") {
		candidate = path.Join(candidate, "index.html")
	}
	if _, err := os.Stat(filepath.Join(v.siteDir, filepath.FromSlash(candidate))); err != nil {
		return &validate.Issue{
			Path:     r.From,
			Severity: validate.SeverityError,
			Rule:     validate.RuleRedirectStub,
			Message:  fmt.Sprintf("redirect stub points at %q, which does not exist in the site output", target),
			Detail:   fmt.Sprintf("Expected %s.", candidate),
		}
	}
	return nil
}

// refreshTarget parses HTML and returns the URL of the first meta refresh.
func refreshTarget(r io.Reader) (string, bool) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false
	}

	var target string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if target != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			if strings.EqualFold(getAttr(n, "http-equiv"), "refresh") {
				if u, ok := parseRefreshContent(getAttr(n, "content")); ok {
					target = u
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return target, target != ""
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// parseRefreshContent extracts the URL from a refresh value such as
// "0; url=../../guide/install/".
func parseRefreshContent(content string) (string, bool) {
	_, rest, found := strings.Cut(content, ";")
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) >= 4 && strings.EqualFold(rest[:4], "url=") {
		rest = rest[4:]
	}
	rest = strings.Trim(rest, `'"`)
	if rest == "" {
		return "", false
	}
	return rest, true
}
