// Package watch implements the continuous rebuild daemon: it monitors the
// manifest and docs tree, coalesces change bursts, rebuilds through the
// pipeline, and optionally publishes outcomes to NATS and serves Prometheus
// metrics over HTTP.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/doctree"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/manifest"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

// Triggers reported on rebuilds.
const (
	TriggerFS       = "fs"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Options configures the watch daemon.
type Options struct {
	ManifestPath string
	BaseDir      string // defaults to the manifest's directory
	DocsDir      string // defaults to <BaseDir>/docs
	SiteDir      string // defaults to <BaseDir>/site
	Strict       bool

	Quiet      time.Duration // debounce quiet window
	MaxDelay   time.Duration // debounce max delay
	Revalidate time.Duration // scheduled full revalidation; 0 disables

	Addr string // metrics/health listen address; empty disables the server

	NATSURL  string // JetStream server; empty disables publishing
	Subject  string
	KVBucket string
}

// Daemon owns the watch-mode lifecycle.
type Daemon struct {
	opts     Options
	recorder metrics.Recorder
	registry *prom.Registry
	notifier *Notifier

	buildMu       sync.Mutex // serializes rebuilds across trigger sources
	manifestDirty atomic.Bool

	mu         sync.RWMutex
	lastReport *pipeline.Report
	startedAt  time.Time
}

// NewDaemon fills in option defaults. The NATS connection is established in
// Run so construction stays cheap and testable.
func NewDaemon(opts Options) *Daemon {
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(opts.ManifestPath)
	}
	if opts.DocsDir == "" {
		opts.DocsDir = filepath.Join(opts.BaseDir, doctree.DefaultDocsDir)
	}
	if opts.SiteDir == "" {
		opts.SiteDir = filepath.Join(opts.BaseDir, "site")
	}
	d := &Daemon{opts: opts, recorder: metrics.NoopRecorder{}}
	if opts.Addr != "" {
		d.registry = prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}
	return d
}

// LastReport returns the most recent build report, or nil before the first
// build completes.
func (d *Daemon) LastReport() *pipeline.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastReport
}

// Run builds once, then keeps rebuilding on filesystem changes and the
// revalidation schedule until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()

	if d.opts.NATSURL != "" {
		notifier, err := NewNotifier(d.opts.NATSURL, d.opts.Subject, d.opts.KVBucket)
		if err != nil {
			return err
		}
		d.notifier = notifier
		defer d.notifier.Close()
	}

	if d.opts.Addr != "" {
		stop, err := d.serveHTTP()
		if err != nil {
			return err
		}
		defer stop()
	}

	debouncer := NewDebouncer(d.opts.Quiet, d.opts.MaxDelay, func(cause string, count int) {
		slog.Info("Change burst settled",
			slog.String("cause", cause),
			slog.Int("changes", count))
		d.rebuild(ctx, TriggerFS)
	})

	watcher, err := NewWatcher(d.opts.DocsDir, d.opts.ManifestPath, func(path string) {
		if path == d.opts.ManifestPath {
			d.manifestDirty.Store(true)
		}
		debouncer.Request()
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	var scheduler gocron.Scheduler
	if d.opts.Revalidate > 0 {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryWatch, "failed to create scheduler")
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(d.opts.Revalidate),
			gocron.NewTask(func() { d.rebuild(ctx, TriggerSchedule) }),
			gocron.WithName("revalidate"),
		)
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryWatch, "failed to schedule revalidation")
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
		slog.Info("Scheduled revalidation enabled", slog.Duration("interval", d.opts.Revalidate))
	}

	slog.Info("Watching for changes",
		logfields.Manifest(d.opts.ManifestPath),
		logfields.DocsDir(d.opts.DocsDir))

	// Initial build before entering the loop so the site is consistent
	// with the tree at startup.
	d.rebuild(ctx, TriggerManual)

	go watcher.Run(ctx)
	go debouncer.Run(ctx)

	<-ctx.Done()
	slog.Info("Watch daemon stopping")
	return nil
}

// rebuild loads the manifest fresh and runs the pipeline. Failures are
// logged, not returned: the daemon outlives bad intermediate states.
func (d *Daemon) rebuild(ctx context.Context, trigger string) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	if trigger == TriggerFS && !d.manifestDirty.Load() && d.unchanged(ctx) {
		slog.Info("Tree fingerprints unchanged; skipping rebuild")
		return
	}
	d.manifestDirty.Store(false)

	// Each rebuild re-reads the manifest: watch mode trades the read-once
	// lifecycle for freshness.
	m, _, err := manifest.Load(d.opts.ManifestPath)
	if err != nil {
		slog.Error("Manifest reload failed", logfields.Manifest(d.opts.ManifestPath), logfields.Error(err))
		return
	}

	d.recorder.IncRebuild(trigger)
	report, err := pipeline.New(m, d.opts.ManifestPath, pipeline.Options{
		BaseDir: d.opts.BaseDir,
		DocsDir: d.opts.DocsDir,
		SiteDir: d.opts.SiteDir,
		Strict:  d.opts.Strict,
	}).WithRecorder(d.recorder).Build(ctx)
	if err != nil {
		slog.Error("Rebuild failed", slog.String("trigger", trigger), logfields.Error(err))
	}

	d.mu.Lock()
	d.lastReport = report
	d.mu.Unlock()

	if d.notifier == nil || report == nil {
		return
	}
	if err := d.notifier.PublishReport(ctx, report); err != nil {
		slog.Warn("Failed to publish build report", logfields.Error(err))
	}
	if report.Outcome == pipeline.OutcomeSuccess || report.Outcome == pipeline.OutcomeWarning {
		if prints, err := d.treeFingerprints(); err == nil {
			if err := d.notifier.StoreFingerprints(ctx, d.opts.ManifestPath, prints); err != nil {
				slog.Warn("Failed to update fingerprint cache", logfields.Error(err))
			}
		}
	}
}

// unchanged reports whether the current tree matches the cached
// fingerprints. Any doubt (no notifier, no cache, scan failure) means a
// rebuild.
func (d *Daemon) unchanged(ctx context.Context) bool {
	if d.notifier == nil {
		return false
	}
	current, err := d.treeFingerprints()
	if err != nil {
		return false
	}
	cached, err := d.notifier.CachedFingerprints(ctx, d.opts.ManifestPath)
	if err != nil || cached == nil {
		return false
	}
	if len(cached) != len(current) {
		return false
	}
	for path, print := range current {
		if cached[path] != print {
			return false
		}
	}
	return true
}

func (d *Daemon) treeFingerprints() (map[string]string, error) {
	tree, err := doctree.NewScanner(d.opts.DocsDir).Scan()
	if err != nil {
		return nil, err
	}
	prints := make(map[string]string, tree.Len())
	for _, doc := range tree.Markdown() {
		prints[doc.RelativePath] = doc.Fingerprint
	}
	return prints, nil
}
