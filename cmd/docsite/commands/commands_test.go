package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	"git.home.luguber.info/inful/docsite/internal/manifest"
)

func TestInitCmd_CreatesManifest(t *testing.T) {
	root := &CLI{Config: filepath.Join(t.TempDir(), "docsite.yaml")}

	cmd := &InitCmd{}
	require.NoError(t, cmd.Run(&Global{}, root))

	m, _, err := manifest.Load(root.Config)
	require.NoError(t, err)
	require.NotEmpty(t, m.Site.Name)
	require.NotEmpty(t, m.Nav)
}

func TestInitCmd_RefusesOverwriteWithoutForce(t *testing.T) {
	root := &CLI{Config: filepath.Join(t.TempDir(), "docsite.yaml")}

	require.NoError(t, (&InitCmd{}).Run(&Global{}, root))
	require.Error(t, (&InitCmd{}).Run(&Global{}, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, root))
}

func TestFmtCmd_WriteProducesStableOutput(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Config: filepath.Join(dir, "docsite.yaml")}
	require.NoError(t, (&InitCmd{}).Run(&Global{}, root))

	require.NoError(t, (&FmtCmd{Write: true}).Run(&Global{}, root))
	first, err := os.ReadFile(root.Config)
	require.NoError(t, err)

	// A second pass over already-formatted input must be a no-op.
	require.NoError(t, (&FmtCmd{Write: true}).Run(&Global{}, root))
	second, err := os.ReadFile(root.Config)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestResolveNav_DerivesLeafLabels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "setup.md"),
		[]byte("# Setting Things Up\n\nbody\n"), 0o644))

	tree, err := doctree.NewScanner(dir).Scan()
	require.NoError(t, err)

	items := []manifest.NavItem{
		{Label: "Home", Path: "index.md"},
		{Path: "guide/setup.md"},
		{Path: "guide/first-steps.md"},
	}
	entries := resolveNav(items, tree)

	require.Len(t, entries, 3)
	require.Equal(t, "Home", entries[0].Label)
	// Unlabeled leaf with a scanned document takes the document's heading.
	require.Equal(t, "Setting Things Up", entries[1].Label)
	// Unlabeled leaf without a document falls back to the path-derived title.
	require.Equal(t, "First Steps", entries[2].Label)
}

func TestResolveNav_NestedSections(t *testing.T) {
	items := []manifest.NavItem{
		{Label: "Reference", Children: []manifest.NavItem{
			{Label: "CLI", Path: "reference/cli.md"},
		}},
	}
	entries := resolveNav(items, nil)

	require.Len(t, entries, 1)
	require.Empty(t, entries[0].Path)
	require.Len(t, entries[0].Children, 1)
	require.Equal(t, "reference/cli.md", entries[0].Children[0].Path)
}
