package manifest

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// DefaultManifestName is the manifest filename looked up in the working directory.
const DefaultManifestName = "docsite.yaml"

// Snapshot records the identity of a loaded manifest file so later stages
// can detect change without re-reading it.
type Snapshot struct {
	Path     string
	Hash     string // sha256 of the raw file bytes
	LoadedAt time.Time
}

// Load reads the manifest at path exactly once, expands ${VAR} environment
// references in the raw content, decodes it, and applies defaults. The
// returned manifest is never mutated afterwards.
func Load(path string) (*Manifest, *Snapshot, error) {
	loadEnvFiles()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, derrors.ManifestNotFound(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityFatal, "failed to read manifest").
			WithContext("path", path)
	}

	expanded := os.ExpandEnv(string(data))

	m, err := Decode([]byte(expanded))
	if err != nil {
		return nil, nil, derrors.ManifestParse(path, err)
	}

	applyDefaults(m)

	snap := &Snapshot{
		Path:     path,
		Hash:     fmt.Sprintf("%x", sha256.Sum256(data)),
		LoadedAt: time.Now().UTC(),
	}
	return m, snap, nil
}

// loadEnvFiles loads .env and .env.local before expansion. Variables already
// present in the process environment always win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(name), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(name))
	}
}

// applyDefaults fills generator defaults. Required fields such as site.name
// are deliberately left alone so validation can flag their absence.
func applyDefaults(m *Manifest) {
	if m.Theme.Name == "" {
		m.Theme.Name = string(ThemeMaterial)
	}
	for i := range m.Theme.Palettes {
		if s := NormalizeColorScheme(m.Theme.Palettes[i].Scheme); s != "" {
			m.Theme.Palettes[i].Scheme = string(s)
		}
	}
}

// Init creates a new manifest file with example content.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("manifest already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(exampleManifest), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// exampleManifest is the scaffold written by docsite init. It exercises every
// section so a new site starts from a complete, valid shape.
const exampleManifest = `site:
  name: Project Documentation
  url: https://example.com/docs
  description: Documentation for an example project

theme:
  name: material
  palette:
    - media: "(prefers-color-scheme: light)"
      scheme: default
      primary: yellow
      accent: yellow
      toggle:
        icon: material/weather-night
        name: Switch to dark mode
    - media: "(prefers-color-scheme: dark)"
      scheme: slate
      primary: yellow
      accent: yellow
      toggle:
        icon: material/weather-sunny
        name: Switch to light mode
  features:
    - content.code.copy
    - navigation.instant
    - navigation.tabs
  icon:
    repo: fontawesome/brands/github

nav:
  - Home: index.md
  - Getting Started:
      - Installation: getting_started/installation.md
      - First Steps: getting_started/first_steps.md
  - Reference:
      - CLI: reference/cli.md

markdown_extensions:
  - admonition
  - toc:
      permalink: true

plugins:
  - search
  - redirects:
      redirect_maps:
        setup.md: getting_started/installation.md

hooks:
  - scripts/generate_cli_docs.sh
`
