package registry

// Builtin returns a registry loaded with the generator's stock inventory:
// the markdown extensions and plugins a standard install ships with, plus
// the pymdownx extension family as a recognized namespace.
func Builtin() *Registry {
	r := NewRegistry()

	for _, d := range builtinExtensions {
		// Names are unique in the tables below.
		_ = r.RegisterExtension(d)
	}
	for _, d := range builtinPlugins {
		_ = r.RegisterPlugin(d)
	}
	r.RegisterNamespace("pymdownx")
	r.RegisterNamespace("material")

	return r
}

var builtinExtensions = []Descriptor{
	{Name: "admonition", Description: "Call-out blocks (note, warning, tip)"},
	{Name: "attr_list", Description: "Attribute lists on block elements"},
	{Name: "def_list", Description: "Definition lists"},
	{Name: "footnotes", Description: "Footnote references"},
	{Name: "md_in_html", Description: "Markdown inside HTML blocks"},
	{Name: "tables", Description: "Pipe tables"},
	{
		Name:        "toc",
		Description: "Table of contents generation",
		Options: map[string]OptionSpec{
			"permalink":       {Type: TypeAny}, // bool toggle or a literal anchor string
			"toc_depth":       {Type: TypeInt},
			"title":           {Type: TypeString},
			"baselevel":       {Type: TypeInt},
			"separator":       {Type: TypeString},
			"slugify":         {Type: TypeAny},
			"anchorlink":      {Type: TypeBool},
			"permalink_title": {Type: TypeString},
		},
	},
	{
		Name:        "pymdownx.highlight",
		Description: "Syntax highlighting for fenced code",
		Options: map[string]OptionSpec{
			"anchor_linenums":     {Type: TypeBool},
			"line_spans":          {Type: TypeString},
			"pygments_lang_class": {Type: TypeBool},
			"use_pygments":        {Type: TypeBool},
			"linenums":            {Type: TypeBool},
		},
	},
	{
		Name:        "pymdownx.tabbed",
		Description: "Tabbed content groups",
		Options: map[string]OptionSpec{
			"alternate_style":     {Type: TypeBool},
			"combine_header_slug": {Type: TypeBool},
		},
	},
	{
		Name:        "pymdownx.tasklist",
		Description: "Task list checkboxes",
		Options: map[string]OptionSpec{
			"custom_checkbox":    {Type: TypeBool},
			"clickable_checkbox": {Type: TypeBool},
		},
	},
	{
		Name:        "pymdownx.arithmatex",
		Description: "Math rendering blocks",
		Options: map[string]OptionSpec{
			"generic": {Type: TypeBool},
		},
	},
	{Name: "pymdownx.details", Description: "Collapsible call-outs"},
	{Name: "pymdownx.inlinehilite", Description: "Inline code highlighting"},
	{Name: "pymdownx.keys", Description: "Keyboard key rendering"},
	// These accept interpreter-level callables and custom structures the
	// schema cannot usefully constrain.
	{Name: "pymdownx.superfences", Description: "Nested and custom fences", Open: true},
	{Name: "pymdownx.snippets", Description: "File inclusion snippets", Open: true},
	{Name: "pymdownx.emoji", Description: "Emoji shortcodes", Open: true},
	{Name: "pymdownx.magiclink", Description: "Auto-linking for repo references", Open: true},
}

var builtinPlugins = []Descriptor{
	{
		Name:        "search",
		Description: "Client-side search index",
		Open:        true,
		Options: map[string]OptionSpec{
			"lang":      {Type: TypeStringList},
			"separator": {Type: TypeString},
		},
	},
	{
		Name:        "redirects",
		Description: "Redirect pages for moved documents",
		Options: map[string]OptionSpec{
			"redirect_maps": {Type: TypePathMap, Required: true},
		},
	},
	{
		Name:        "social",
		Description: "Social preview card generation",
		Open:        true,
		Options: map[string]OptionSpec{
			"cards":     {Type: TypeBool},
			"cards_dir": {Type: TypeString},
		},
	},
	{
		Name:        "mike",
		Description: "Multi-version publishing",
		Options: map[string]OptionSpec{
			"alias_type":        {Type: TypeString},
			"canonical_version": {Type: TypeString},
			"version_selector":  {Type: TypeBool},
			"css_dir":           {Type: TypeString},
			"javascript_dir":    {Type: TypeString},
			"deploy_prefix":     {Type: TypeString},
		},
	},
	{
		Name:        "tags",
		Description: "Page tag indexes",
		Open:        true,
		Options: map[string]OptionSpec{
			"tags_file": {Type: TypeString},
		},
	},
	{
		Name:        "offline",
		Description: "Offline-capable site output",
		Options: map[string]OptionSpec{
			"enabled": {Type: TypeBool},
		},
	},
}
