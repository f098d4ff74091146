package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(full, []byte("#!/bin/sh\n"+body), 0o755))
	return name
}

func TestFire_ExportsEventAndPaths(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := writeScript(t, dir, "capture.sh",
		`printf '%s|%s|%s|%s' "$1" "$DOCSITE_EVENT" "$DOCSITE_CONFIG" "$DOCSITE_SITE_DIR" > "`+out+`"`+"\n")

	r := NewRunner([]string{script}, dir).
		WithManifestPath("/work/docsite.yaml").
		WithSiteDir("/work/site")

	require.NoError(t, r.Fire(context.Background(), EventPreBuild))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "pre_build|pre_build|/work/docsite.yaml|/work/site", string(data))
}

func TestFire_RunsScriptsInDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "order.txt")
	first := writeScript(t, dir, "first.sh", `printf 'a' >> "`+out+`"`+"\n")
	second := writeScript(t, dir, "second.sh", `printf 'b' >> "`+out+`"`+"\n")

	r := NewRunner([]string{first, second}, dir)
	require.NoError(t, r.Fire(context.Background(), EventStartup))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "ab", string(data))
}

func TestFire_PreBuildFailure_AbortsAndReturnsHookError(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	failing := writeScript(t, dir, "fail.sh", "echo boom >&2\nexit 3\n")
	after := writeScript(t, dir, "after.sh", `printf 'ran' > "`+out+`"`+"\n")

	r := NewRunner([]string{failing, after}, dir)
	err := r.Fire(context.Background(), EventPreBuild)

	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryHook))
	require.Contains(t, err.Error(), "boom")

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "scripts after a fatal failure must not run")
}

func TestFire_PostBuildFailure_IsAbsorbed(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	failing := writeScript(t, dir, "fail.sh", "exit 1\n")
	after := writeScript(t, dir, "after.sh", `printf 'ran' > "`+out+`"`+"\n")

	r := NewRunner([]string{failing, after}, dir)
	require.NoError(t, r.Fire(context.Background(), EventPostBuild))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "ran", string(data))
}

func TestFire_MissingScript_FailsFatalEvents(t *testing.T) {
	r := NewRunner([]string{"no-such-script.sh"}, t.TempDir())
	err := r.Fire(context.Background(), EventStartup)
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryHook))
}

func TestFire_TimeoutKillsScript(t *testing.T) {
	dir := t.TempDir()
	slow := writeScript(t, dir, "slow.sh", "sleep 5\n")

	r := NewRunner([]string{slow}, dir).WithTimeout(100 * time.Millisecond)

	start := time.Now()
	err := r.Fire(context.Background(), EventPreBuild)
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestFire_RecordsTimings(t *testing.T) {
	dir := t.TempDir()
	first := writeScript(t, dir, "first.sh", "true\n")
	second := writeScript(t, dir, "second.sh", "true\n")

	r := NewRunner([]string{first, second}, dir)
	require.NoError(t, r.Fire(context.Background(), EventStartup))
	require.NoError(t, r.Fire(context.Background(), EventPostBuild))

	timings := r.Timings()
	require.Len(t, timings, 4)
	require.Equal(t, EventStartup, timings[0].Event)
	require.Equal(t, "first.sh", timings[0].Script)
	require.Equal(t, "second.sh", timings[1].Script)
	require.Equal(t, EventPostBuild, timings[2].Event)
	for _, tm := range timings {
		require.GreaterOrEqual(t, tm.Duration, time.Duration(0))
	}
}

func TestEventFatal(t *testing.T) {
	require.True(t, EventStartup.Fatal())
	require.True(t, EventPreBuild.Fatal())
	require.False(t, EventPostBuild.Fatal())
	require.False(t, EventShutdown.Fatal())
}

func TestFire_NoScripts_NoOp(t *testing.T) {
	r := NewRunner(nil, t.TempDir())
	for _, event := range []Event{EventStartup, EventPreBuild, EventPostBuild, EventShutdown} {
		require.NoError(t, r.Fire(context.Background(), event))
	}
}
