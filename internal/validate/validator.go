package validate

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	"git.home.luguber.info/inful/docsite/internal/manifest"
	"git.home.luguber.info/inful/docsite/internal/registry"
)

// Options adjusts how the validator resolves filesystem references.
type Options struct {
	// BaseDir is the directory hook script paths resolve against,
	// normally the directory containing the manifest.
	BaseDir string
}

// Validator coordinates validation across all manifest domains.
type Validator struct {
	m      *manifest.Manifest
	tree   *doctree.Tree
	reg    *registry.Registry
	opts   Options
	issues []Issue
}

// New creates a validator for one manifest against one scanned docs tree.
func New(m *manifest.Manifest, tree *doctree.Tree, reg *registry.Registry, opts Options) *Validator {
	return &Validator{m: m, tree: tree, reg: reg, opts: opts}
}

// Validate runs every rule in dependency order and returns all findings.
// Unlike a fail-fast check, the full manifest is examined so one run shows
// everything that needs fixing.
func (v *Validator) Validate() *Result {
	v.issues = nil
	v.validateSite()
	v.validateTheme()
	v.validateNav()
	v.validateExtensions()
	v.validatePlugins()
	v.validateHooks()

	result := &Result{Issues: v.issues}
	if v.tree != nil {
		result.DocsTotal = v.tree.Len()
	}
	return result
}

func (v *Validator) add(issue Issue) {
	v.issues = append(v.issues, issue)
}

// validateSite checks the site identity block.
func (v *Validator) validateSite() {
	if strings.TrimSpace(v.m.Site.Name) == "" {
		v.add(Issue{
			Path:     "site.name",
			Severity: SeverityError,
			Rule:     RuleSiteName,
			Message:  "site name is required",
			Detail:   "Every published page derives its window title from the site name.",
			Fix:      "add a name under the site block of the manifest",
		})
	}

	if raw := v.m.Site.URL; raw != "" {
		u, err := url.Parse(raw)
		switch {
		case err != nil, u.Scheme == "", u.Host == "":
			v.add(Issue{
				Path:     "site.url",
				Severity: SeverityWarning,
				Rule:     RuleSiteURL,
				Message:  fmt.Sprintf("site URL %q is not an absolute URL", raw),
				Detail:   "Canonical links and the sitemap need an absolute base URL.",
			})
		case u.Scheme != "http" && u.Scheme != "https":
			v.add(Issue{
				Path:     "site.url",
				Severity: SeverityWarning,
				Rule:     RuleSiteURL,
				Message:  fmt.Sprintf("site URL scheme %q is unusual for a published site", u.Scheme),
			})
		}
	}
}

// validateTheme checks the theme descriptor: theme name, palette variants
// and feature flags. Theme options beyond the modeled ones pass through
// untouched, so only the modeled parts are checked.
func (v *Validator) validateTheme() {
	t := v.m.Theme

	if t.Name != "" && t.NameType() == "" {
		v.add(Issue{
			Path:     "theme.name",
			Severity: SeverityWarning,
			Rule:     RuleThemeKnown,
			Message:  fmt.Sprintf("theme %q is not a known integration", t.Name),
			Detail:   "Known themes: material, readthedocs. Unknown themes are passed through to the generator unchecked.",
		})
	}

	for i, p := range t.Palettes {
		at := fmt.Sprintf("theme.palette[%d]", i)
		if p.Media != "" && (!strings.HasPrefix(p.Media, "(") || !strings.HasSuffix(p.Media, ")")) {
			v.add(Issue{
				Path:     at,
				Severity: SeverityWarning,
				Rule:     RulePaletteMedia,
				Message:  fmt.Sprintf("media query %q is not parenthesized", p.Media),
				Detail:   "Palette variants activate on CSS media queries such as (prefers-color-scheme: dark).",
				Fix:      fmt.Sprintf("write it as %q", "("+p.Media+")"),
			})
		}
		if p.Scheme != "" && p.SchemeType() == "" {
			v.add(Issue{
				Path:     at,
				Severity: SeverityWarning,
				Rule:     RulePaletteScheme,
				Message:  fmt.Sprintf("color scheme %q is not recognized", p.Scheme),
				Detail:   "Recognized schemes: default, slate.",
			})
		}
	}

	seen := make(map[string]bool, len(t.Features))
	for _, f := range t.Features {
		if seen[f] {
			v.add(Issue{
				Path:     "theme.features",
				Severity: SeverityWarning,
				Rule:     RuleFeatureDuplicate,
				Message:  fmt.Sprintf("feature flag %q is listed more than once", f),
			})
			continue
		}
		seen[f] = true
	}
}

// validateNav checks that every navigation leaf resolves to a markdown
// document in the scanned tree and that sibling labels stay unique.
func (v *Validator) validateNav() {
	if v.tree == nil {
		return
	}

	for _, leaf := range v.m.NavLeaves() {
		where := navTrail(leaf)
		doc, ok := v.tree.Get(leaf.Path)
		if !ok {
			issue := Issue{
				Path:     leaf.Path,
				Severity: SeverityError,
				Rule:     RuleNavLeafExists,
				Message:  fmt.Sprintf("navigation entry %q points to a missing document", where),
				Detail:   fmt.Sprintf("No file named %q exists under %s.", leaf.Path, v.tree.Root()),
			}
			if hint := v.closestDoc(leaf.Path); hint != "" {
				issue.Fix = fmt.Sprintf("did you mean %q?", hint)
			}
			v.add(issue)
			continue
		}
		if doc.IsAsset {
			v.add(Issue{
				Path:     leaf.Path,
				Severity: SeverityError,
				Rule:     RuleNavLeafIsDocument,
				Message:  fmt.Sprintf("navigation entry %q points to an asset, not a markdown document", where),
			})
		}
	}

	// Sibling labels must stay unique or the rendered menu collapses entries.
	var walk func(items []manifest.NavItem, trail []string)
	walk = func(items []manifest.NavItem, trail []string) {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			label := item.DisplayLabel()
			if seen[label] {
				v.add(Issue{
					Path:     strings.Join(append(append([]string{}, trail...), label), " > "),
					Severity: SeverityWarning,
					Rule:     RuleNavDuplicateLabel,
					Message:  fmt.Sprintf("navigation label %q appears twice at the same level", label),
				})
			}
			seen[label] = true
			if !item.IsLeaf() {
				next := make([]string, len(trail)+1)
				copy(next, trail)
				next[len(trail)] = item.Label
				walk(item.Children, next)
			}
		}
	}
	walk(v.m.Nav, nil)
}

// validateExtensions checks the markdown extension list against the registry.
func (v *Validator) validateExtensions() {
	for _, ref := range v.m.Extensions {
		desc, known := v.reg.Extension(ref.ID)
		if !known {
			if v.reg.InNamespace(ref.ID) {
				v.add(Issue{
					Path:     ref.ID,
					Severity: SeverityWarning,
					Rule:     RuleExtensionUnknown,
					Message:  fmt.Sprintf("markdown extension %q is not individually registered", ref.ID),
					Detail:   "Its namespace is installed, so the build will proceed, but options cannot be checked.",
				})
			} else {
				v.add(Issue{
					Path:     ref.ID,
					Severity: SeverityError,
					Rule:     RuleExtensionUnknown,
					Message:  fmt.Sprintf("markdown extension %q is not installed", ref.ID),
				})
			}
			continue
		}

		opts, err := ref.OptionsMap()
		if err != nil {
			v.add(Issue{
				Path:     ref.ID,
				Severity: SeverityError,
				Rule:     RuleExtensionOptions,
				Message:  fmt.Sprintf("options for markdown extension %q are not a valid option mapping", ref.ID),
				Detail:   err.Error(),
			})
			continue
		}
		for _, optErr := range desc.ValidateOptions(opts) {
			v.add(Issue{
				Path:     ref.ID,
				Severity: SeverityError,
				Rule:     RuleExtensionOptions,
				Message:  optErr.Error(),
			})
		}
	}
}

// validatePlugins checks the plugin list against the registry, then the
// redirect table owned by the redirects plugin.
func (v *Validator) validatePlugins() {
	for _, ref := range v.m.Plugins {
		desc, known := v.reg.Plugin(ref.ID)
		if !known {
			if v.reg.InNamespace(ref.ID) {
				v.add(Issue{
					Path:     ref.ID,
					Severity: SeverityWarning,
					Rule:     RulePluginUnknown,
					Message:  fmt.Sprintf("plugin %q is not individually registered", ref.ID),
					Detail:   "Its namespace is installed, so the build will proceed, but options cannot be checked.",
				})
			} else {
				v.add(Issue{
					Path:     ref.ID,
					Severity: SeverityError,
					Rule:     RulePluginUnknown,
					Message:  fmt.Sprintf("plugin %q is not installed", ref.ID),
				})
			}
			continue
		}

		opts, err := ref.OptionsMap()
		if err != nil {
			v.add(Issue{
				Path:     ref.ID,
				Severity: SeverityError,
				Rule:     RulePluginOptions,
				Message:  fmt.Sprintf("options for plugin %q are not a valid option mapping", ref.ID),
				Detail:   err.Error(),
			})
			continue
		}
		for _, optErr := range desc.ValidateOptions(opts) {
			v.add(Issue{
				Path:     ref.ID,
				Severity: SeverityError,
				Rule:     RulePluginOptions,
				Message:  optErr.Error(),
			})
		}
	}

	v.validateRedirects()
}

// validateRedirects checks the redirect table: unique keys, targets that are
// live navigation leaves, and no chained redirects.
func (v *Validator) validateRedirects() {
	redirects := v.m.Redirects()
	if len(redirects) == 0 {
		return
	}

	sources := make(map[string]int, len(redirects))
	for _, r := range redirects {
		sources[r.From]++
	}

	reported := make(map[string]bool)
	for _, r := range redirects {
		if sources[r.From] > 1 && !reported[r.From] {
			reported[r.From] = true
			v.add(Issue{
				Path:     r.From,
				Severity: SeverityError,
				Rule:     RuleRedirectDuplicateKey,
				Message:  fmt.Sprintf("redirect key %q appears %d times", r.From, sources[r.From]),
				Detail:   "Only one target can win; remove the stale entries.",
			})
		}

		if r.From == r.To {
			v.add(Issue{
				Path:     r.From,
				Severity: SeverityWarning,
				Rule:     RuleRedirectSelf,
				Message:  fmt.Sprintf("redirect %q points at itself", r.From),
			})
			continue
		}

		if sources[r.To] > 0 {
			issue := Issue{
				Path:     r.From,
				Severity: SeverityError,
				Rule:     RuleRedirectChain,
				Message:  fmt.Sprintf("redirect target %q is itself redirected", r.To),
				Detail:   "Chained redirects are not followed; point directly at the final document.",
			}
			for _, rr := range redirects {
				if rr.From == r.To {
					issue.Fix = fmt.Sprintf("point %q directly at %q", r.From, rr.To)
					break
				}
			}
			v.add(issue)
		}

		if !v.m.HasNavLeaf(r.To) {
			v.add(Issue{
				Path:     r.From,
				Severity: SeverityError,
				Rule:     RuleRedirectTarget,
				Message:  fmt.Sprintf("redirect target %q is not a navigation leaf", r.To),
				Detail:   "Targets must be live pages reachable from the navigation tree.",
			})
		}

		if v.tree != nil && v.tree.Has(r.From) {
			v.add(Issue{
				Path:     r.From,
				Severity: SeverityWarning,
				Rule:     RuleRedirectShadowed,
				Message:  fmt.Sprintf("redirect source %q still exists in the docs tree", r.From),
				Detail:   "The generated stub would collide with the real page output.",
				Fix:      fmt.Sprintf("delete %s or remove the redirect", r.From),
			})
		}
	}
}

// validateHooks checks that every hook script exists and is executable.
func (v *Validator) validateHooks() {
	for _, script := range v.m.Hooks {
		resolved := script
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(v.opts.BaseDir, script)
		}

		info, err := os.Stat(resolved)
		if err != nil {
			v.add(Issue{
				Path:     script,
				Severity: SeverityError,
				Rule:     RuleHookExists,
				Message:  fmt.Sprintf("hook script %q does not exist", script),
				Detail:   fmt.Sprintf("Looked for %s.", resolved),
			})
			continue
		}
		if info.IsDir() {
			v.add(Issue{
				Path:     script,
				Severity: SeverityError,
				Rule:     RuleHookExists,
				Message:  fmt.Sprintf("hook script %q is a directory", script),
			})
			continue
		}
		if info.Mode()&0o111 == 0 {
			v.add(Issue{
				Path:     script,
				Severity: SeverityWarning,
				Rule:     RuleHookExecutable,
				Message:  fmt.Sprintf("hook script %q is not executable", script),
				Fix:      fmt.Sprintf("chmod +x %s", script),
			})
		}
	}
}

// closestDoc suggests a tree document sharing the missing path's base name.
func (v *Validator) closestDoc(missing string) string {
	base := path.Base(missing)
	for _, d := range v.tree.Markdown() {
		if path.Base(d.RelativePath) == base {
			return d.RelativePath
		}
	}
	return ""
}

// navTrail renders a leaf's position as "Section > Subsection > Label".
func navTrail(leaf manifest.NavLeaf) string {
	label := leaf.Label
	if label == "" {
		label = manifest.TitleFromPath(leaf.Path)
	}
	parts := make([]string, 0, len(leaf.Trail)+1)
	parts = append(parts, leaf.Trail...)
	parts = append(parts, label)
	return strings.Join(parts, " > ")
}
