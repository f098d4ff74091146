package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Site      string `short:"o" help:"Output directory for the generated site (defaults to site/ beside the manifest)"`
	Docs      string `help:"Docs source directory (defaults to docs/ beside the manifest)"`
	Strict    bool   `help:"Escalate validation and audit warnings to build failures"`
	ReportDir string `help:"Persist the build report JSON into this directory"`
	Record    bool   `help:"Record the run in the validation history database"`
	History   string `help:"History database path" default:"history.db"`
}

// Run executes the build command.
func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, snap, err := loadManifest(root)
	if err != nil {
		return err
	}

	builder := pipeline.New(m, root.Config, pipeline.Options{
		DocsDir: b.Docs,
		SiteDir: b.Site,
		Strict:  b.Strict,
	})

	report, buildErr := builder.Build(ctx)

	// The report exists even for failed builds; persist and record it
	// before deciding the command outcome.
	if report != nil {
		if b.ReportDir != "" {
			if err := report.Persist(b.ReportDir); err != nil {
				return err
			}
		}
		if b.Record {
			if err := recordBuild(ctx, report, snap.Hash, b.History); err != nil {
				return err
			}
		}
		fmt.Println(report.Summary())
	}

	return buildErr
}

func recordBuild(ctx context.Context, report *pipeline.Report, manifestHash, dbPath string) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := history.FromReport(report, manifestHash)
	if err != nil {
		return err
	}
	return store.Append(ctx, run)
}
