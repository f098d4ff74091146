// Package pipeline orchestrates a full site build: scanning the source tree,
// validating the manifest against it, auditing document links, invoking the
// external generator, and emitting redirect stubs. Stages run sequentially
// over shared BuildState; lifecycle hooks fire around them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/hooks"
	"git.home.luguber.info/inful/docsite/internal/linkaudit"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/manifest"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/redirects"
	"git.home.luguber.info/inful/docsite/internal/registry"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// Options configures a build run.
type Options struct {
	// BaseDir is the project root; hook scripts and relative directories
	// resolve against it. Defaults to the manifest's directory.
	BaseDir string
	// DocsDir is the markdown source root. Defaults to <BaseDir>/docs.
	DocsDir string
	// SiteDir is the generator output root. Defaults to <BaseDir>/site.
	SiteDir string
	// Strict escalates validation and audit warnings to build failures.
	Strict bool
}

// BuildState is shared mutable state threaded through the stages.
type BuildState struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	BaseDir      string
	DocsDir      string
	SiteDir      string
	Tree         *doctree.Tree
	Findings     *validate.Result
	Report       *Report
}

// Builder runs the build pipeline for one manifest.
type Builder struct {
	manifest     *manifest.Manifest
	manifestPath string
	opts         Options
	registry     *registry.Registry
	renderer     Renderer
	recorder     metrics.Recorder
}

// New creates a Builder with defaults filled in from the manifest location.
func New(m *manifest.Manifest, manifestPath string, opts Options) *Builder {
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(manifestPath)
	}
	if opts.DocsDir == "" {
		opts.DocsDir = filepath.Join(opts.BaseDir, doctree.DefaultDocsDir)
	}
	if opts.SiteDir == "" {
		opts.SiteDir = filepath.Join(opts.BaseDir, "site")
	}
	return &Builder{
		manifest:     m,
		manifestPath: manifestPath,
		opts:         opts,
		registry:     registry.Builtin(),
		renderer:     &BinaryRenderer{},
		recorder:     metrics.NoopRecorder{},
	}
}

// WithRenderer overrides the generator invocation strategy.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	if r != nil {
		b.renderer = r
	}
	return b
}

// WithRecorder overrides the metrics sink.
func (b *Builder) WithRecorder(rec metrics.Recorder) *Builder {
	if rec != nil {
		b.recorder = rec
	}
	return b
}

// WithRegistry overrides the extension/plugin inventory used for validation.
func (b *Builder) WithRegistry(reg *registry.Registry) *Builder {
	if reg != nil {
		b.registry = reg
	}
	return b
}

// Build runs hooks and stages and always returns a Report, even on failure,
// so callers can persist and inspect partial results. The error, when
// non-nil, is the first fatal failure.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := newReport(b.manifestPath)
	report.NavLeaves = len(b.manifest.NavLeaves())
	report.Redirects = len(b.manifest.Redirects())

	bs := &BuildState{
		Manifest:     b.manifest,
		ManifestPath: b.manifestPath,
		BaseDir:      b.opts.BaseDir,
		DocsDir:      b.opts.DocsDir,
		SiteDir:      b.opts.SiteDir,
		Report:       report,
	}

	slog.Info("Build starting",
		logfields.RunID(report.RunID),
		logfields.Manifest(b.manifestPath),
		logfields.DocsDir(b.opts.DocsDir),
		logfields.SiteDir(b.opts.SiteDir))

	err := b.run(ctx, bs)

	report.finish()
	report.deriveOutcome()
	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(string(report.Outcome))

	slog.Info("Build finished",
		logfields.RunID(report.RunID),
		slog.String("outcome", string(report.Outcome)),
		logfields.Errors(len(report.Errors)),
		logfields.Warnings(len(report.Warnings)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))

	return report, err
}

func (b *Builder) run(ctx context.Context, bs *BuildState) error {
	runner := hooks.NewRunner(b.manifest.Hooks, b.opts.BaseDir).
		WithManifestPath(b.manifestPath).
		WithSiteDir(b.opts.SiteDir)
	defer func() { bs.Report.recordHookTimings(runner.Timings()) }()

	// Validation runs before any hook fires: a manifest that fails its
	// checks must not trigger hook side effects, and missing or broken
	// hook scripts are reported as validation issues rather than
	// mid-build failures.
	if err := b.runStages(ctx, bs, []stageEntry{
		{"scan_docs", b.stageScanDocs},
		{"validate_manifest", b.stageValidateManifest},
		{"audit_links", b.stageAuditLinks},
	}); err != nil {
		return err
	}

	if err := runner.Fire(ctx, hooks.EventStartup); err != nil {
		bs.Report.Errors = append(bs.Report.Errors, err)
		return err
	}
	if err := runner.Fire(ctx, hooks.EventPreBuild); err != nil {
		bs.Report.Errors = append(bs.Report.Errors, err)
		return err
	}

	err := b.runStages(ctx, bs, []stageEntry{
		{"run_generator", b.stageRunGenerator},
		{"emit_redirects", b.stageEmitRedirects},
		{"verify_redirects", b.stageVerifyRedirects},
	})

	if err == nil {
		// Notification hook failures are logged inside Fire and must not
		// flip a completed build to failed.
		_ = runner.Fire(ctx, hooks.EventPostBuild)
	}
	_ = runner.Fire(ctx, hooks.EventShutdown)

	return err
}

func (b *Builder) stageScanDocs(_ context.Context, bs *BuildState) error {
	tree, err := doctree.NewScanner(bs.DocsDir).Scan()
	if err != nil {
		return newFatalStageError("scan_docs", err)
	}
	bs.Tree = tree
	bs.Report.Docs = tree.Len()
	return nil
}

func (b *Builder) stageValidateManifest(_ context.Context, bs *BuildState) error {
	result := validate.New(bs.Manifest, bs.Tree, b.registry, validate.Options{BaseDir: bs.BaseDir}).Validate()
	bs.Findings = result
	bs.Report.Issues = append(bs.Report.Issues, result.Issues...)
	b.recorder.SetValidationIssues("error", result.ErrorCount())
	b.recorder.SetValidationIssues("warning", result.WarningCount())

	if result.HasErrors() {
		return newFatalStageError("validate_manifest",
			ValidationFailure(result, validate.SeverityError))
	}
	if result.HasWarnings() {
		if b.opts.Strict {
			return newFatalStageError("validate_manifest",
				ValidationFailure(result, validate.SeverityWarning))
		}
		return newWarningStageError("validate_manifest",
			fmt.Errorf("%d validation warning(s)", result.WarningCount()))
	}
	return nil
}

func (b *Builder) stageAuditLinks(ctx context.Context, bs *BuildState) error {
	result, err := linkaudit.New(bs.Tree).Audit(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return newCanceledStageError("audit_links", err)
		}
		return newFatalStageError("audit_links", err)
	}
	bs.Report.Issues = append(bs.Report.Issues, result.Issues...)

	if result.HasWarnings() {
		if b.opts.Strict {
			return newFatalStageError("audit_links",
				derrors.ReferenceError(fmt.Sprintf("%d unresolved internal link(s)", result.WarningCount())))
		}
		return newWarningStageError("audit_links",
			fmt.Errorf("%d unresolved internal link(s)", result.WarningCount()))
	}
	return nil
}

func (b *Builder) stageRunGenerator(ctx context.Context, bs *BuildState) error {
	if !generatorEnabled() {
		slog.Debug("Generator execution disabled; skipping render")
		return nil
	}
	if err := b.renderer.Execute(ctx, bs.ManifestPath, bs.SiteDir); err != nil {
		if ctx.Err() != nil {
			return newCanceledStageError("run_generator", ctx.Err())
		}
		return newFatalStageError("run_generator", derrors.StageFailed("run_generator", err))
	}
	bs.Report.StaticRendered = true
	return nil
}

func (b *Builder) stageEmitRedirects(_ context.Context, bs *BuildState) error {
	table := bs.Manifest.Redirects()
	if len(table) == 0 {
		return nil
	}
	written, err := redirects.NewEmitter(bs.SiteDir).Emit(table)
	bs.Report.StubsWritten = written
	if err != nil {
		return newFatalStageError("emit_redirects", err)
	}
	return nil
}

func (b *Builder) stageVerifyRedirects(_ context.Context, bs *BuildState) error {
	table := bs.Manifest.Redirects()
	if len(table) == 0 {
		return nil
	}
	if !bs.Report.StaticRendered {
		// Without a rendered site the redirect targets cannot exist yet.
		slog.Debug("Site not rendered; skipping redirect stub verification")
		return nil
	}
	result := redirects.NewVerifier(bs.SiteDir).Verify(table)
	bs.Report.Issues = append(bs.Report.Issues, result.Issues...)

	if result.HasErrors() {
		if b.opts.Strict {
			return newFatalStageError("verify_redirects",
				derrors.ReferenceError(fmt.Sprintf("%d redirect stub(s) failed verification", result.ErrorCount())))
		}
		return newWarningStageError("verify_redirects",
			fmt.Errorf("%d redirect stub(s) failed verification", result.ErrorCount()))
	}
	return nil
}

// ValidationFailure summarizes a blocking validation result. The error
// category follows the first issue at the given severity so exit codes
// reflect what actually went wrong.
func ValidationFailure(result *validate.Result, severity validate.Severity) *derrors.SiteError {
	category := derrors.CategorySchema
	for _, issue := range result.Issues {
		if issue.Severity == severity {
			category = issueCategory(issue.Rule)
			break
		}
	}
	count := result.ErrorCount()
	noun := "error"
	if severity == validate.SeverityWarning {
		count = result.WarningCount()
		noun = "warning"
	}
	return derrors.Newf(category, derrors.SeverityFatal,
		"manifest validation reported %d %s(s)", count, noun)
}

// issueCategory maps a validation rule identifier onto the error taxonomy.
func issueCategory(rule string) derrors.ErrorCategory {
	switch {
	case strings.HasPrefix(rule, "extension-"), strings.HasPrefix(rule, "plugin-"):
		return derrors.CategoryPlugin
	case strings.HasPrefix(rule, "nav-"), strings.HasPrefix(rule, "redirect-"),
		strings.HasPrefix(rule, "hook-"), strings.HasPrefix(rule, "doc-"):
		return derrors.CategoryReference
	default:
		return derrors.CategorySchema
	}
}
