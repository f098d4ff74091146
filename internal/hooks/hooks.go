// Package hooks runs the manifest's lifecycle scripts. Scripts are plain
// executables invoked in declaration order; the event name arrives as the
// first argument and in the environment.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Event names the lifecycle points a hook script can observe.
type Event string

const (
	EventStartup   Event = "startup"
	EventPreBuild  Event = "pre_build"
	EventPostBuild Event = "post_build"
	EventShutdown  Event = "shutdown"
)

// Fatal reports whether a script failure at this event aborts the run.
// Failures before the build do; failures after it are reported and absorbed
// so a broken notification script cannot fail an otherwise good build.
func (e Event) Fatal() bool {
	switch e {
	case EventStartup, EventPreBuild:
		return true
	default:
		return false
	}
}

// Environment variable names exported to every hook invocation.
const (
	EnvEvent    = "DOCSITE_EVENT"
	EnvManifest = "DOCSITE_CONFIG"
	EnvSiteDir  = "DOCSITE_SITE_DIR"
)

// DefaultTimeout bounds a single script invocation.
const DefaultTimeout = 2 * time.Minute

// Runner executes hook scripts for lifecycle events.
type Runner struct {
	scripts  []string
	baseDir  string
	manifest string
	siteDir  string
	timeout  time.Duration
	timings  []Timing
}

// NewRunner creates a runner for the given scripts. Relative script paths
// resolve against baseDir, normally the manifest's directory.
func NewRunner(scripts []string, baseDir string) *Runner {
	return &Runner{scripts: scripts, baseDir: baseDir, timeout: DefaultTimeout}
}

// WithManifestPath sets the manifest path exported to scripts.
func (r *Runner) WithManifestPath(p string) *Runner {
	r.manifest = p
	return r
}

// WithSiteDir sets the site output directory exported to scripts.
func (r *Runner) WithSiteDir(dir string) *Runner {
	r.siteDir = dir
	return r
}

// WithTimeout bounds each script invocation. Zero disables the bound.
func (r *Runner) WithTimeout(d time.Duration) *Runner {
	r.timeout = d
	return r
}

// Timing records one hook script invocation.
type Timing struct {
	Event    Event
	Script   string
	Duration time.Duration
}

// Timings returns one entry per script invocation so far, in firing order.
// Failed invocations are included; their duration still counts.
func (r *Runner) Timings() []Timing {
	return r.timings
}

// Fire runs every script for one event in declaration order. For fatal
// events the first failure aborts and is returned; for the others failures
// are logged and the remaining scripts still run.
func (r *Runner) Fire(ctx context.Context, event Event) error {
	for _, script := range r.scripts {
		if err := r.runScript(ctx, event, script); err != nil {
			if event.Fatal() {
				return err
			}
			slog.Warn("Hook script failed",
				logfields.Hook(script), logfields.Event(string(event)), logfields.Error(err))
		}
	}
	return nil
}

func (r *Runner) runScript(ctx context.Context, event Event, script string) error {
	resolved := script
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(r.baseDir, script)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, resolved, string(event))
	cmd.Dir = r.baseDir
	cmd.Env = append(os.Environ(),
		EnvEvent+"="+string(event),
		EnvManifest+"="+r.manifest,
		EnvSiteDir+"="+r.siteDir,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running hook script", logfields.Hook(script), logfields.Event(string(event)))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	r.timings = append(r.timings, Timing{Event: event, Script: script, Duration: elapsed})
	slog.Debug("Hook script finished",
		logfields.Hook(script),
		logfields.Event(string(event)),
		logfields.DurationMS(float64(elapsed.Milliseconds())))

	if out := strings.TrimSpace(stdout.String()); out != "" {
		slog.Debug("Hook stdout", logfields.Hook(script), slog.String("output", out))
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		slog.Warn("Hook stderr", logfields.Hook(script), slog.String("output", out))
	}

	if err != nil {
		cause := err
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			cause = fmt.Errorf("%w: %s", err, msg)
		}
		return derrors.HookFailed(script, string(event), cause)
	}
	return nil
}
