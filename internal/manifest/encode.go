package manifest

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// canonicalKeyOrder is the section order used for manifests built in memory.
// Decoded manifests re-emit sections in the order the source file used.
var canonicalKeyOrder = []string{keySite, keyTheme, keyNav, keyExtensions, keyPlugins, keyHooks}

// Encode serializes the manifest back to YAML with two-space indentation.
// Every ordered sequence (navigation, extensions, plugins, redirect table)
// is emitted in manifest order, so decode+encode round-trips never shuffle
// entries. Empty sections are omitted.
func Encode(m *Manifest) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range m.sectionOrder() {
		valNode := m.sectionNode(key)
		if valNode == nil {
			continue
		}
		root.Content = append(root.Content, strNode(key), valNode)
	}
	if len(root.Content) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manifest) sectionOrder() []string {
	if len(m.keyOrder) > 0 {
		return m.keyOrder
	}
	order := make([]string, 0, len(canonicalKeyOrder)+len(m.extra))
	order = append(order, canonicalKeyOrder...)
	for _, pair := range m.extra {
		order = append(order, pair.key)
	}
	return order
}

func (m *Manifest) sectionNode(key string) *yaml.Node {
	switch key {
	case keySite:
		return siteNode(m.Site)
	case keyTheme:
		return themeNode(m.Theme)
	case keyNav:
		if len(m.Nav) == 0 {
			return nil
		}
		return navNode(m.Nav)
	case keyExtensions:
		if len(m.Extensions) == 0 {
			return nil
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, ref := range m.Extensions {
			seq.Content = append(seq.Content, refNode(ref.ID, ref.Options))
		}
		return seq
	case keyPlugins:
		if len(m.Plugins) == 0 {
			return nil
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, ref := range m.Plugins {
			seq.Content = append(seq.Content, refNode(ref.ID, ref.Options))
		}
		return seq
	case keyHooks:
		if len(m.Hooks) == 0 {
			return nil
		}
		return stringSeqNode(m.Hooks)
	default:
		for _, pair := range m.extra {
			if pair.key == key {
				return pair.value
			}
		}
		return nil
	}
}

func siteNode(s SiteInfo) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	appendStrPair(n, "name", s.Name)
	appendStrPair(n, "url", s.URL)
	appendStrPair(n, "description", s.Description)
	if len(n.Content) == 0 {
		return nil
	}
	return n
}

// themeNode emits modeled theme keys in canonical order followed by the
// preserved theme-specific keys.
func themeNode(t Theme) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	appendStrPair(n, "name", t.Name)
	if len(t.Palettes) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, p := range t.Palettes {
			seq.Content = append(seq.Content, paletteNode(p))
		}
		n.Content = append(n.Content, strNode("palette"), seq)
	}
	if len(t.Features) > 0 {
		n.Content = append(n.Content, strNode("features"), stringSeqNode(t.Features))
	}
	if len(t.Icons) > 0 {
		icons := &yaml.Node{Kind: yaml.MappingNode}
		for _, ref := range t.Icons {
			icons.Content = append(icons.Content, strNode(ref.Name), strNode(ref.Icon))
		}
		n.Content = append(n.Content, strNode("icon"), icons)
	}
	for _, pair := range t.extra {
		n.Content = append(n.Content, strNode(pair.key), pair.value)
	}
	if len(n.Content) == 0 {
		return nil
	}
	return n
}

func paletteNode(p Palette) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	appendStrPair(n, "media", p.Media)
	appendStrPair(n, "scheme", p.Scheme)
	appendStrPair(n, "primary", p.Primary)
	appendStrPair(n, "accent", p.Accent)
	if p.Toggle != (Toggle{}) {
		tn := &yaml.Node{Kind: yaml.MappingNode}
		appendStrPair(tn, "icon", p.Toggle.Icon)
		appendStrPair(tn, "name", p.Toggle.Name)
		n.Content = append(n.Content, strNode("toggle"), tn)
	}
	return n
}

func navNode(items []NavItem) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range items {
		seq.Content = append(seq.Content, navItemNode(item))
	}
	return seq
}

func navItemNode(item NavItem) *yaml.Node {
	if item.Label == "" && item.IsLeaf() {
		return strNode(item.Path)
	}
	pair := &yaml.Node{Kind: yaml.MappingNode}
	if item.IsLeaf() {
		pair.Content = append(pair.Content, strNode(item.Label), strNode(item.Path))
	} else {
		pair.Content = append(pair.Content, strNode(item.Label), navNode(item.Children))
	}
	return pair
}

// refNode emits a scalar id when there are no options, otherwise a
// single-pair mapping carrying the original option node verbatim.
func refNode(id string, options *yaml.Node) *yaml.Node {
	if options == nil {
		return strNode(id)
	}
	pair := &yaml.Node{Kind: yaml.MappingNode}
	pair.Content = append(pair.Content, strNode(id), options)
	return pair
}

func stringSeqNode(values []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		seq.Content = append(seq.Content, strNode(v))
	}
	return seq
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func appendStrPair(n *yaml.Node, key, val string) {
	if val == "" {
		return
	}
	n.Content = append(n.Content, strNode(key), strNode(val))
}
