// Package redirects materializes the manifest's redirect table as meta
// refresh stub pages in the built site, and verifies emitted stubs against
// the site output.
package redirects

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/manifest"
)

// stubTemplate mirrors what browsers and crawlers both understand: an
// immediate meta refresh, a canonical link for indexers that follow it
// anyway, and a script fallback that preserves the URL fragment.
var stubTemplate = template.Must(template.New("redirect").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Redirecting...</title>
<link rel="canonical" href="{{.URL}}">
<meta name="robots" content="noindex">
<script>var anchor = window.location.hash.substr(1); location.replace("{{.URL}}" + (anchor ? "#" + anchor : ""));</script>
<meta http-equiv="refresh" content="0; url={{.URL}}">
</head>
<body>
<p>Redirecting to <a href="{{.URL}}">{{.URL}}</a>...</p>
</body>
</html>
`))

// HTMLPath maps a document path to its pretty-URL output location:
// "guide/old.md" becomes "guide/old/index.html" while index documents stay
// in place ("guide/index.md" becomes "guide/index.html").
func HTMLPath(docPath string) string {
	dir := path.Dir(docPath)
	base := strings.TrimSuffix(path.Base(docPath), path.Ext(docPath))
	if strings.EqualFold(base, "index") || base == "README" {
		base = "index"
	} else {
		dir = path.Join(dir, base)
		base = "index"
	}
	return path.Join(dir, base+".html")
}

// URL maps a document path to its site-root-relative pretty URL:
// "guide/old.md" becomes "guide/old/", "index.md" becomes "".
func URL(docPath string) string {
	htmlPath := HTMLPath(docPath)
	dir := path.Dir(htmlPath)
	if dir == "." {
		return ""
	}
	return dir + "/"
}

// RelativeURL builds the URL a stub for fromDoc uses to reach toDoc: one
// "../" per directory level of the stub followed by the target's pretty URL.
func RelativeURL(fromDoc, toDoc string) string {
	stubDir := path.Dir(HTMLPath(fromDoc))
	depth := 0
	if stubDir != "." {
		depth = strings.Count(stubDir, "/") + 1
	}
	target := strings.Repeat("../", depth) + URL(toDoc)
	if target == "" {
		return "./"
	}
	return target
}

// Emitter writes redirect stubs into a built site directory.
type Emitter struct {
	siteDir string
}

// NewEmitter creates an emitter for one site output directory.
func NewEmitter(siteDir string) *Emitter {
	return &Emitter{siteDir: siteDir}
}

// Emit writes one stub per redirect and returns how many were written.
// Stub locations already occupied by a real page are left alone; validation
// reports those separately as shadowed redirects.
func (e *Emitter) Emit(redirects []manifest.Redirect) (int, error) {
	written := 0
	for _, r := range redirects {
		stubRel := HTMLPath(r.From)
		stubAbs := filepath.Join(e.siteDir, filepath.FromSlash(stubRel))

		if _, err := os.Stat(stubAbs); err == nil {
			slog.Warn("Skipping redirect stub, output path already exists",
				logfields.Path(stubRel), slog.String("from", r.From))
			continue
		}

		if err := os.MkdirAll(filepath.Dir(stubAbs), 0o755); err != nil {
			return written, derrors.WrapError(err, derrors.CategoryFileSystem,
				fmt.Sprintf("cannot create redirect stub directory for %s", r.From))
		}

		f, err := os.Create(stubAbs)
		if err != nil {
			return written, derrors.WrapError(err, derrors.CategoryFileSystem,
				fmt.Sprintf("cannot create redirect stub for %s", r.From))
		}
		execErr := stubTemplate.Execute(f, struct{ URL string }{URL: RelativeURL(r.From, r.To)})
		closeErr := f.Close()
		if execErr != nil {
			return written, derrors.WrapError(execErr, derrors.CategoryFileSystem,
				fmt.Sprintf("cannot write redirect stub for %s", r.From))
		}
		if closeErr != nil {
			return written, derrors.WrapError(closeErr, derrors.CategoryFileSystem,
				fmt.Sprintf("cannot write redirect stub for %s", r.From))
		}

		slog.Debug("Emitted redirect stub",
			logfields.Path(stubRel), slog.String("to", r.To))
		written++
	}
	return written, nil
}
