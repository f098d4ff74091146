// Package manifest holds the in-memory form of a docsite.yaml site manifest
// and its order-preserving YAML codec. A manifest is read exactly once at the
// start of an operation, never mutated afterwards, and discarded when the
// operation finishes.
package manifest

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteInfo identifies the published site.
type SiteInfo struct {
	Name        string
	URL         string
	Description string
}

// Toggle configures the control that switches between palette variants.
type Toggle struct {
	Icon string
	Name string
}

// Palette is one color-scheme variant, activated by a media query.
type Palette struct {
	Media   string
	Scheme  string // raw scheme string from the manifest; normalized via SchemeType()
	Primary string
	Accent  string
	Toggle  Toggle
}

// ColorScheme is a typed enumeration of palette color schemes.
type ColorScheme string

const (
	SchemeDefault ColorScheme = "default"
	SchemeSlate   ColorScheme = "slate"
)

// NormalizeColorScheme canonicalizes user input returning empty string if unknown.
func NormalizeColorScheme(raw string) ColorScheme {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SchemeDefault):
		return SchemeDefault
	case string(SchemeSlate):
		return SchemeSlate
	default:
		return ""
	}
}

// SchemeType returns the normalized typed scheme value.
// Unknown schemes return "" so callers can branch safely.
func (p Palette) SchemeType() ColorScheme {
	return NormalizeColorScheme(p.Scheme)
}

// IconRef is a named icon assignment (repo, logo, edit, ...).
type IconRef struct {
	Name string
	Icon string
}

// IconMap is an ordered icon assignment list. Order follows the source file
// so re-serialization does not shuffle entries.
type IconMap []IconRef

// Get returns the icon assigned to name.
func (m IconMap) Get(name string) (string, bool) {
	for _, ref := range m {
		if ref.Name == name {
			return ref.Icon, true
		}
	}
	return "", false
}

// ThemeName is a typed enumeration of theme integrations the tool knows about.
type ThemeName string

const (
	ThemeMaterial    ThemeName = "material"
	ThemeReadTheDocs ThemeName = "readthedocs"
)

// NormalizeThemeName canonicalizes user input returning empty string if unknown.
func NormalizeThemeName(raw string) ThemeName {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ThemeMaterial):
		return ThemeMaterial
	case string(ThemeReadTheDocs):
		return ThemeReadTheDocs
	default:
		return ""
	}
}

// Theme describes the named theme and its presentation settings. Keys the
// codec does not model are kept in extra and re-emitted verbatim, since
// themes define open-ended option namespaces.
type Theme struct {
	Name     string // raw theme string from the manifest; normalized via NameType()
	Palettes []Palette
	Features []string
	Icons    IconMap

	extra []yamlPair
}

// NameType returns the normalized typed theme value.
// Unknown themes return "" so callers can branch safely.
func (t Theme) NameType() ThemeName {
	return NormalizeThemeName(t.Name)
}

// NavItem is one navigation entry: a leaf (Label -> Path) or a section
// (Label -> Children). Exactly one of Path or Children is set. A bare-path
// leaf has an empty Label; its display title is derived from the document.
type NavItem struct {
	Label    string
	Path     string
	Children []NavItem
}

// IsLeaf reports whether the item references a document rather than a section.
func (n NavItem) IsLeaf() bool { return n.Path != "" }

// NavLeaf is a flattened navigation leaf with the section labels above it.
type NavLeaf struct {
	Trail []string
	Label string
	Path  string
}

// ExtensionRef names one markdown extension plus its raw option node.
// A scalar list entry carries no options; Options stays nil.
type ExtensionRef struct {
	ID      string
	Options *yaml.Node
}

// OptionsMap decodes the raw option node into a generic map. Entries without
// options yield nil.
func (e ExtensionRef) OptionsMap() (map[string]any, error) {
	return optionsMap(e.Options)
}

// PluginRef names one plugin plus its raw option node.
type PluginRef struct {
	ID      string
	Options *yaml.Node
}

// OptionsMap decodes the raw option node into a generic map. Entries without
// options yield nil.
func (p PluginRef) OptionsMap() (map[string]any, error) {
	return optionsMap(p.Options)
}

func optionsMap(node *yaml.Node) (map[string]any, error) {
	if node == nil {
		return nil, nil
	}
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Redirect maps an old document path to its replacement. The order matches
// the redirect table in the manifest.
type Redirect struct {
	From string
	To   string
}

// RedirectsPluginID is the plugin that owns the redirect table.
const RedirectsPluginID = "redirects"

// Manifest is the decoded form of a site manifest file.
type Manifest struct {
	Site       SiteInfo
	Theme      Theme
	Nav        []NavItem
	Extensions []ExtensionRef
	Plugins    []PluginRef
	Hooks      []string

	redirects []Redirect // decoded from the redirects plugin option table
	extra     []yamlPair // unknown top-level keys, re-emitted verbatim
	keyOrder  []string   // top-level key order from the source file
}

// yamlPair preserves an unmodeled mapping entry for re-serialization.
type yamlPair struct {
	key   string
	value *yaml.Node
}

// Plugin returns the named plugin reference.
func (m *Manifest) Plugin(id string) (PluginRef, bool) {
	for _, p := range m.Plugins {
		if p.ID == id {
			return p, true
		}
	}
	return PluginRef{}, false
}

// HasPlugin reports whether the named plugin is configured.
func (m *Manifest) HasPlugin(id string) bool {
	_, ok := m.Plugin(id)
	return ok
}

// Extension returns the named markdown extension reference.
func (m *Manifest) Extension(id string) (ExtensionRef, bool) {
	for _, e := range m.Extensions {
		if e.ID == id {
			return e, true
		}
	}
	return ExtensionRef{}, false
}

// Redirects returns the redirect table in manifest order, including any
// duplicated keys so validation can report them. Callers must not modify
// the returned slice.
func (m *Manifest) Redirects() []Redirect {
	return m.redirects
}

// NavLeaves flattens the navigation tree into leaves in document order.
func (m *Manifest) NavLeaves() []NavLeaf {
	var leaves []NavLeaf
	var walk func(items []NavItem, trail []string)
	walk = func(items []NavItem, trail []string) {
		for _, item := range items {
			if item.IsLeaf() {
				leaves = append(leaves, NavLeaf{Trail: trail, Label: item.Label, Path: item.Path})
				continue
			}
			next := make([]string, len(trail)+1)
			copy(next, trail)
			next[len(trail)] = item.Label
			walk(item.Children, next)
		}
	}
	walk(m.Nav, nil)
	return leaves
}

// HasNavLeaf reports whether path appears as a navigation leaf.
func (m *Manifest) HasNavLeaf(path string) bool {
	for _, leaf := range m.NavLeaves() {
		if leaf.Path == path {
			return true
		}
	}
	return false
}
