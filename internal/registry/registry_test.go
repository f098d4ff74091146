package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterPlugin(Descriptor{Name: "search"}))
	require.NoError(t, r.RegisterExtension(Descriptor{Name: "toc"}))

	d, ok := r.Plugin("search")
	require.True(t, ok)
	require.Equal(t, KindPlugin, d.Kind)

	require.True(t, r.HasExtension("toc"))
	require.False(t, r.HasPlugin("toc"), "extension names do not leak into the plugin catalog")
	require.Equal(t, 2, r.Count())
}

func TestRegistry_DuplicateRegistration_Fails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterPlugin(Descriptor{Name: "search"}))

	err := r.RegisterPlugin(Descriptor{Name: "search"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")
}

func TestRegistry_EmptyName_Fails(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterExtension(Descriptor{})
	require.Error(t, err)
}

func TestRegistry_Namespaces(t *testing.T) {
	r := NewRegistry()
	r.RegisterNamespace("pymdownx")

	require.True(t, r.InNamespace("pymdownx.caret"))
	require.False(t, r.InNamespace("pymdownx"), "a bare prefix is not a namespaced id")
	require.False(t, r.InNamespace("mdx.truly_sane_lists"))
}

func TestBuiltin_CoversStockInventory(t *testing.T) {
	r := Builtin()

	for _, name := range []string{"admonition", "toc", "pymdownx.superfences", "tables"} {
		require.True(t, r.HasExtension(name), "extension %s", name)
	}
	for _, name := range []string{"search", "redirects", "social", "mike"} {
		require.True(t, r.HasPlugin(name), "plugin %s", name)
	}
	require.True(t, r.InNamespace("pymdownx.caret"))

	exts := r.Extensions()
	for i := 1; i < len(exts); i++ {
		require.LessOrEqual(t, exts[i-1].Name, exts[i].Name, "extensions sorted by name")
	}
}

func TestValidateOptions_UnknownOption(t *testing.T) {
	r := Builtin()
	d, ok := r.Plugin("redirects")
	require.True(t, ok)

	errs := d.ValidateOptions(map[string]any{
		"redirect_maps": map[string]any{"old.md": "new.md"},
		"redirect_mpas": map[string]any{},
	})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), `does not accept option "redirect_mpas"`)
}

func TestValidateOptions_MissingRequired(t *testing.T) {
	r := Builtin()
	d, ok := r.Plugin("redirects")
	require.True(t, ok)

	errs := d.ValidateOptions(map[string]any{})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), `requires option "redirect_maps"`)
}

func TestValidateOptions_TypeMismatch(t *testing.T) {
	r := Builtin()
	toc, ok := r.Extension("toc")
	require.True(t, ok)

	errs := toc.ValidateOptions(map[string]any{"toc_depth": "three"})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "expected an integer")
}

func TestValidateOptions_ClosedDescriptorWithNoSchema(t *testing.T) {
	r := Builtin()
	adm, ok := r.Extension("admonition")
	require.True(t, ok)

	errs := adm.ValidateOptions(map[string]any{"anything": true})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "accepts no options")
}

func TestValidateOptions_OpenDescriptorAllowsExtras(t *testing.T) {
	r := Builtin()
	search, ok := r.Plugin("search")
	require.True(t, ok)

	errs := search.ValidateOptions(map[string]any{
		"lang":       []any{"en"},
		"indexing":   "full",
		"separator":  `[\s\-]+`,
	})
	require.Empty(t, errs)
}

func TestValidateOptions_StringListAcceptsSingleString(t *testing.T) {
	r := Builtin()
	search, ok := r.Plugin("search")
	require.True(t, ok)

	require.Empty(t, search.ValidateOptions(map[string]any{"lang": "en"}))
	require.Empty(t, search.ValidateOptions(map[string]any{"lang": []any{"en", "de"}}))

	errs := search.ValidateOptions(map[string]any{"lang": []any{"en", 5}})
	require.Len(t, errs, 1)
}

func TestValidateOptions_PathMapValues(t *testing.T) {
	d := Descriptor{
		Name: "redirects",
		Kind: KindPlugin,
		Options: map[string]OptionSpec{
			"redirect_maps": {Type: TypePathMap, Required: true},
		},
	}

	errs := d.ValidateOptions(map[string]any{
		"redirect_maps": map[string]any{"old.md": 7},
	})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), `"old.md" maps to int`)
}
