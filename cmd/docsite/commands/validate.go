package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/linkaudit"
	"git.home.luguber.info/inful/docsite/internal/registry"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Docs    string `help:"Docs source directory (defaults to docs/ beside the manifest)"`
	Format  string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Strict  bool   `help:"Treat warnings as errors for the exit code"`
	Links   bool   `help:"Also audit relative links inside every scanned document"`
	Record  bool   `help:"Record this run in the validation history database"`
	History string `help:"History database path" default:"history.db"`
	Quiet   bool   `short:"q" help:"Warnings do not affect the exit code"`
}

// Run executes the validate command.
func (v *ValidateCmd) Run(_ *Global, root *CLI) error {
	started := time.Now()

	m, snap, err := loadManifest(root)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(root.Config)
	docsDir := v.Docs
	if docsDir == "" {
		docsDir = filepath.Join(baseDir, doctree.DefaultDocsDir)
	}

	tree, err := doctree.NewScanner(docsDir).Scan()
	if err != nil {
		return err
	}

	validator := validate.New(m, tree, registry.Builtin(), validate.Options{BaseDir: baseDir})
	result := validator.Validate()

	if v.Links {
		linkResult, err := linkaudit.New(tree).Audit(context.Background())
		if err != nil {
			return err
		}
		result.Merge(linkResult)
	}

	formatter := validate.NewFormatter(v.Format)
	if err := formatter.Format(os.Stdout, result, root.Config); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if v.Record {
		if err := recordRun(result, snap.Hash, v.History, started); err != nil {
			return err
		}
	}

	// Determine exit code based on results
	if result.HasErrors() || (v.Strict && result.HasWarnings()) {
		os.Exit(2) // Errors found (blocks build)
	} else if result.HasWarnings() && !v.Quiet {
		os.Exit(1) // Warnings present
	}

	return nil
}

// recordRun appends a standalone validation run to the history store.
func recordRun(result *validate.Result, manifestHash, dbPath string, started time.Time) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var report bytes.Buffer
	if err := validate.NewJSONFormatter().Format(&report, result, ""); err != nil {
		return err
	}

	outcome := "success"
	switch {
	case result.HasErrors():
		outcome = "failed"
	case result.HasWarnings():
		outcome = "warning"
	}

	return store.Append(context.Background(), history.Run{
		ID:           uuid.NewString(),
		ManifestHash: manifestHash,
		StartedAt:    started,
		DurationMS:   time.Since(started).Milliseconds(),
		Outcome:      outcome,
		Docs:         result.DocsTotal,
		Errors:       result.ErrorCount(),
		Warnings:     result.WarningCount(),
		Report:       report.Bytes(),
	})
}
