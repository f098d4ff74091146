package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Top-level manifest keys. Unlisted keys are preserved verbatim because the
// external generator accepts an open-ended configuration surface.
const (
	keySite       = "site"
	keyTheme      = "theme"
	keyNav        = "nav"
	keyExtensions = "markdown_extensions"
	keyPlugins    = "plugins"
	keyHooks      = "hooks"
)

// Decode parses manifest bytes. Sequence order and mapping-entry order are
// kept exactly as written: navigation, extension, plugin, and redirect order
// all carry meaning for the generated site.
func Decode(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		// Empty file decodes to an empty manifest; validation decides
		// whether that is acceptable.
		return &Manifest{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest root must be a mapping, got %s at line %d", kindName(root.Kind), root.Line)
	}

	m := &Manifest{}
	seen := make(map[string]int)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		key := keyNode.Value
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate key %q at line %d (already defined at line %d)", key, keyNode.Line, prev)
		}
		seen[key] = keyNode.Line
		m.keyOrder = append(m.keyOrder, key)

		if isNull(valNode) && isModeledKey(key) {
			// An explicitly empty section means the same as an absent one.
			continue
		}

		var err error
		switch key {
		case keySite:
			err = decodeSite(valNode, &m.Site)
		case keyTheme:
			err = decodeTheme(valNode, &m.Theme)
		case keyNav:
			m.Nav, err = decodeNav(valNode)
		case keyExtensions:
			m.Extensions, err = decodeExtensions(valNode)
		case keyPlugins:
			m.Plugins, err = decodePlugins(valNode)
		case keyHooks:
			m.Hooks, err = decodeStringList(valNode, keyHooks)
		default:
			m.extra = append(m.extra, yamlPair{key: key, value: valNode})
		}
		if err != nil {
			return nil, err
		}
	}

	m.redirects = decodeRedirects(m)
	return m, nil
}

func decodeSite(node *yaml.Node, out *SiteInfo) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("site: expected a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		val, err := scalarValue(valNode, "site."+keyNode.Value)
		if err != nil {
			return err
		}
		switch keyNode.Value {
		case "name":
			out.Name = val
		case "url":
			out.URL = val
		case "description":
			out.Description = val
		default:
			return fmt.Errorf("site: unknown key %q at line %d", keyNode.Value, keyNode.Line)
		}
	}
	return nil
}

func decodeTheme(node *yaml.Node, out *Theme) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("theme: expected a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var err error
		switch keyNode.Value {
		case "name":
			out.Name, err = scalarValue(valNode, "theme.name")
		case "palette":
			out.Palettes, err = decodePalettes(valNode)
		case "features":
			out.Features, err = decodeStringList(valNode, "theme.features")
		case "icon":
			out.Icons, err = decodeIconMap(valNode)
		default:
			// Theme option namespaces are theme-defined; keep them intact.
			out.extra = append(out.extra, yamlPair{key: keyNode.Value, value: valNode})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodePalettes(node *yaml.Node) ([]Palette, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("theme.palette: expected a sequence, got %s at line %d", kindName(node.Kind), node.Line)
	}
	palettes := make([]Palette, 0, len(node.Content))
	for _, item := range node.Content {
		p, err := decodePalette(item)
		if err != nil {
			return nil, err
		}
		palettes = append(palettes, p)
	}
	return palettes, nil
}

func decodePalette(node *yaml.Node) (Palette, error) {
	var p Palette
	if node.Kind != yaml.MappingNode {
		return p, fmt.Errorf("theme.palette: entry must be a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var err error
		switch keyNode.Value {
		case "media":
			p.Media, err = scalarValue(valNode, "palette.media")
		case "scheme":
			p.Scheme, err = scalarValue(valNode, "palette.scheme")
		case "primary":
			p.Primary, err = scalarValue(valNode, "palette.primary")
		case "accent":
			p.Accent, err = scalarValue(valNode, "palette.accent")
		case "toggle":
			p.Toggle, err = decodeToggle(valNode)
		default:
			err = fmt.Errorf("theme.palette: unknown key %q at line %d", keyNode.Value, keyNode.Line)
		}
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

func decodeToggle(node *yaml.Node) (Toggle, error) {
	var t Toggle
	if node.Kind != yaml.MappingNode {
		return t, fmt.Errorf("palette.toggle: expected a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		val, err := scalarValue(valNode, "toggle."+keyNode.Value)
		if err != nil {
			return t, err
		}
		switch keyNode.Value {
		case "icon":
			t.Icon = val
		case "name":
			t.Name = val
		default:
			return t, fmt.Errorf("palette.toggle: unknown key %q at line %d", keyNode.Value, keyNode.Line)
		}
	}
	return t, nil
}

func decodeIconMap(node *yaml.Node) (IconMap, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("theme.icon: expected a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	icons := make(IconMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		val, err := scalarValue(valNode, "theme.icon."+keyNode.Value)
		if err != nil {
			return nil, err
		}
		icons = append(icons, IconRef{Name: keyNode.Value, Icon: val})
	}
	return icons, nil
}

// decodeNav parses the navigation tree. Entries are either bare document
// paths, label -> path leaves, or label -> subtree sections.
func decodeNav(node *yaml.Node) ([]NavItem, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("nav: expected a sequence, got %s at line %d", kindName(node.Kind), node.Line)
	}
	items := make([]NavItem, 0, len(node.Content))
	for _, entry := range node.Content {
		item, err := decodeNavItem(entry)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeNavItem(node *yaml.Node) (NavItem, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return NavItem{}, fmt.Errorf("nav: empty entry at line %d", node.Line)
		}
		return NavItem{Path: node.Value}, nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return NavItem{}, fmt.Errorf("nav: entry at line %d must map exactly one label", node.Line)
		}
		keyNode, valNode := node.Content[0], node.Content[1]
		if keyNode.Value == "" {
			return NavItem{}, fmt.Errorf("nav: entry at line %d has an empty label", keyNode.Line)
		}
		switch valNode.Kind {
		case yaml.ScalarNode:
			if valNode.Value == "" {
				return NavItem{}, fmt.Errorf("nav: %q at line %d has an empty path", keyNode.Value, valNode.Line)
			}
			return NavItem{Label: keyNode.Value, Path: valNode.Value}, nil
		case yaml.SequenceNode:
			children, err := decodeNav(valNode)
			if err != nil {
				return NavItem{}, err
			}
			return NavItem{Label: keyNode.Value, Children: children}, nil
		default:
			return NavItem{}, fmt.Errorf("nav: %q at line %d must map to a path or a subtree", keyNode.Value, valNode.Line)
		}
	default:
		return NavItem{}, fmt.Errorf("nav: entry must be a path or a labeled mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
}

func decodeExtensions(node *yaml.Node) ([]ExtensionRef, error) {
	entries, err := decodeRefSeq(node, keyExtensions)
	if err != nil {
		return nil, err
	}
	refs := make([]ExtensionRef, len(entries))
	for i, e := range entries {
		refs[i] = ExtensionRef{ID: e.id, Options: e.options}
	}
	return refs, nil
}

func decodePlugins(node *yaml.Node) ([]PluginRef, error) {
	entries, err := decodeRefSeq(node, keyPlugins)
	if err != nil {
		return nil, err
	}
	refs := make([]PluginRef, len(entries))
	for i, e := range entries {
		refs[i] = PluginRef{ID: e.id, Options: e.options}
	}
	return refs, nil
}

type refEntry struct {
	id      string
	options *yaml.Node
}

// decodeRefSeq parses the shared id-plus-options list shape used by both
// markdown extensions and plugins: scalar entries name an id with no
// options, single-pair mapping entries attach an option mapping.
func decodeRefSeq(node *yaml.Node, what string) ([]refEntry, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected a sequence, got %s at line %d", what, kindName(node.Kind), node.Line)
	}
	entries := make([]refEntry, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			if item.Value == "" {
				return nil, fmt.Errorf("%s: empty entry at line %d", what, item.Line)
			}
			entries = append(entries, refEntry{id: item.Value})
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				return nil, fmt.Errorf("%s: entry at line %d must name exactly one id", what, item.Line)
			}
			keyNode, valNode := item.Content[0], item.Content[1]
			if keyNode.Value == "" {
				return nil, fmt.Errorf("%s: entry at line %d has an empty id", what, keyNode.Line)
			}
			opts := valNode
			if valNode.Tag == "!!null" {
				opts = nil
			}
			entries = append(entries, refEntry{id: keyNode.Value, options: opts})
		default:
			return nil, fmt.Errorf("%s: entry must be an id or an id with options, got %s at line %d", what, kindName(item.Kind), item.Line)
		}
	}
	return entries, nil
}

func decodeStringList(node *yaml.Node, what string) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected a sequence, got %s at line %d", what, kindName(node.Kind), node.Line)
	}
	values := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		val, err := scalarValue(item, what)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}
	return values, nil
}

// decodeRedirects extracts the redirect table from the redirects plugin.
// Duplicate keys are kept so validation can report each one; a table of the
// wrong shape is left empty here and flagged by plugin option validation.
func decodeRedirects(m *Manifest) []Redirect {
	ref, ok := m.Plugin(RedirectsPluginID)
	if !ok || ref.Options == nil || ref.Options.Kind != yaml.MappingNode {
		return nil
	}
	var table *yaml.Node
	for i := 0; i+1 < len(ref.Options.Content); i += 2 {
		if ref.Options.Content[i].Value == "redirect_maps" {
			table = ref.Options.Content[i+1]
			break
		}
	}
	if table == nil || table.Kind != yaml.MappingNode {
		return nil
	}
	redirects := make([]Redirect, 0, len(table.Content)/2)
	for i := 0; i+1 < len(table.Content); i += 2 {
		keyNode, valNode := table.Content[i], table.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || valNode.Kind != yaml.ScalarNode {
			continue
		}
		redirects = append(redirects, Redirect{From: keyNode.Value, To: valNode.Value})
	}
	return redirects
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func isModeledKey(key string) bool {
	switch key {
	case keySite, keyTheme, keyNav, keyExtensions, keyPlugins, keyHooks:
		return true
	default:
		return false
	}
}

func scalarValue(node *yaml.Node, context string) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%s: expected a scalar, got %s at line %d", context, kindName(node.Kind), node.Line)
	}
	return node.Value, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
