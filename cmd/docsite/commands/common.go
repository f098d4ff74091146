package commands

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/docsite/internal/manifest"
	"github.com/alecthomas/kong"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to the
// root manifest path.
type CLI struct {
	Config  string           `short:"c" help:"Site manifest path" default:"docsite.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init      InitCmd      `cmd:"" help:"Scaffold an example site manifest"`
	Validate  ValidateCmd  `cmd:"" help:"Validate the manifest against the docs tree and plugin inventory"`
	Fmt       FmtCmd       `cmd:"" help:"Re-serialize the manifest preserving key and sequence order"`
	Nav       NavCmd       `cmd:"" help:"Print the resolved navigation tree"`
	Redirects RedirectsCmd `cmd:"" help:"Emit, check, or list redirect stub pages"`
	Build     BuildCmd     `cmd:"" help:"Run the full build pipeline"`
	Versions  VersionsCmd  `cmd:"" help:"Manage the multi-version inventory (versions.json)"`
	Watch     WatchCmd     `cmd:"" help:"Continuously revalidate on manifest and docs changes"`
	History   HistoryCmd   `cmd:"" help:"Show recorded validation runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadManifest reads the manifest named by the root --config flag.
func loadManifest(root *CLI) (*manifest.Manifest, *manifest.Snapshot, error) {
	return manifest.Load(root.Config)
}
