package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

type emitRecord struct {
	cause string
	count int
}

func TestDebouncer_BurstCoalescesToSingleEmit(t *testing.T) {
	emits := make(chan emitRecord, 10)
	d := NewDebouncer(25*time.Millisecond, 500*time.Millisecond, func(cause string, count int) {
		emits <- emitRecord{cause, count}
	})

	ctx := t.Context()
	go d.Run(ctx)

	select {
	case <-d.Ready():
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer ready")
	}

	for range 5 {
		d.Request()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-emits:
		require.Equal(t, "quiet", got.cause)
		require.GreaterOrEqual(t, got.count, 1)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for emit")
	}

	select {
	case <-emits:
		t.Fatal("expected only one emit for burst")
	case <-time.After(75 * time.Millisecond):
		// ok
	}
}

func TestDebouncer_MaxDelayForcesEmit(t *testing.T) {
	emits := make(chan emitRecord, 10)
	// Quiet window longer than the request spacing would postpone forever.
	d := NewDebouncer(200*time.Millisecond, 60*time.Millisecond, func(cause string, count int) {
		emits <- emitRecord{cause, count}
	})

	ctx := t.Context()
	go d.Run(ctx)

	select {
	case <-d.Ready():
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer ready")
	}

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		d.Request()
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case got := <-emits:
		require.Equal(t, "max_delay", got.cause)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for max-delay emit")
	}
}

func TestWatcher_NotifiesOnDocChange(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	manifestPath := filepath.Join(root, "docsite.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("site:\n  name: X\n"), 0o644))

	var mu sync.Mutex
	var got []string
	w, err := NewWatcher(docs, manifestPath, func(path string) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()

	ctx := t.Context()
	go w.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(docs, ".hidden.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.md"), []byte("# Home\n"), 0o644))

	seen := func(name string) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range got {
			if filepath.Base(p) == name {
				return true
			}
		}
		return false
	}
	require.Eventually(t, func() bool { return seen("index.md") }, 3*time.Second, 20*time.Millisecond)
	require.False(t, seen(".hidden.md"), "dotfiles must be filtered")
}

func TestWatcher_NotifiesOnManifestChange(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	manifestPath := filepath.Join(root, "docsite.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("site:\n  name: X\n"), 0o644))

	var mu sync.Mutex
	var got []string
	w, err := NewWatcher(docs, manifestPath, func(path string) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()

	ctx := t.Context()
	go w.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(manifestPath, []byte("site:\n  name: Y\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range got {
			if p == manifestPath {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	manifestPath := filepath.Join(root, "docsite.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("site:\n  name: X\n"), 0o644))

	var mu sync.Mutex
	var got []string
	w, err := NewWatcher(docs, manifestPath, func(path string) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()

	ctx := t.Context()
	go w.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	sub := filepath.Join(docs, "guide")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(100 * time.Millisecond) // let the new watch arm
	require.NoError(t, os.WriteFile(filepath.Join(sub, "install.md"), []byte("# Install\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range got {
			if filepath.Base(p) == "install.md" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func watchProject(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	manifestPath := filepath.Join(root, "docsite.yaml")
	manifestYAML := `site:
  name: Example Docs
  url: https://example.com/docs

theme:
  name: material

nav:
  - Home: index.md
`
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestYAML), 0o644))
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.md"), []byte("# Home\n"), 0o644))
	return root, manifestPath
}

func TestDaemon_RebuildProducesReport(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := watchProject(t)

	d := NewDaemon(Options{ManifestPath: manifestPath, BaseDir: root})
	d.rebuild(context.Background(), TriggerManual)

	report := d.LastReport()
	require.NotNil(t, report)
	require.Equal(t, pipeline.OutcomeSuccess, report.Outcome)
	require.Equal(t, 1, report.Docs)
}

func TestDaemon_RunBuildsOnStartAndRebuildOnChange(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := watchProject(t)

	d := NewDaemon(Options{
		ManifestPath: manifestPath,
		BaseDir:      root,
		Quiet:        50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.LastReport() != nil }, 5*time.Second, 20*time.Millisecond)
	firstRun := d.LastReport().RunID

	// Touch a document and wait for the debounced rebuild.
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.md"), []byte("# Home v2\n"), 0o644))
	require.Eventually(t, func() bool {
		r := d.LastReport()
		return r != nil && r.RunID != firstRun
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
}

func TestHandleReport_BeforeAnyBuild(t *testing.T) {
	d := NewDaemon(Options{ManifestPath: "docsite.yaml"})
	rr := httptest.NewRecorder()
	d.handleReport(rr, httptest.NewRequest("GET", "/report", nil))
	require.Equal(t, 404, rr.Code)
}

func TestHandleHealthAndReport_AfterBuild(t *testing.T) {
	d := NewDaemon(Options{ManifestPath: "docsite.yaml"})
	d.mu.Lock()
	d.lastReport = &pipeline.Report{RunID: "run-1", Outcome: pipeline.OutcomeSuccess, SchemaVersion: 1}
	d.mu.Unlock()

	rr := httptest.NewRecorder()
	d.handleHealth(rr, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, rr.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.True(t, health.Builds)
	require.Equal(t, "run-1", health.LastRunID)
	require.Equal(t, "success", health.LastOutcome)

	rr = httptest.NewRecorder()
	d.handleReport(rr, httptest.NewRequest("GET", "/report", nil))
	require.Equal(t, 200, rr.Code)
	var report pipeline.ReportSerializable
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, "run-1", report.RunID)
}

func TestRetryPublish_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := retryPublish(context.Background(), RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("flaky")
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryPublish_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retryPublish(context.Background(), RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond},
		func(context.Context) error {
			calls++
			return errors.New("down")
		})
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestRetryPublish_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryPublish(ctx, RetryPolicy{MaxAttempts: 5, Backoff: time.Hour},
		func(context.Context) error { return errors.New("down") })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCacheKey(t *testing.T) {
	k1 := cacheKey("/a/docsite.yaml")
	k2 := cacheKey("/b/docsite.yaml")
	require.NotEqual(t, k1, k2)
	require.Equal(t, k1, cacheKey("/a/docsite.yaml"))
	require.Regexp(t, regexp.MustCompile(`^tree\.[0-9a-f]{16}$`), k1)
}
