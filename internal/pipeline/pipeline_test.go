package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/manifest"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

const cleanManifest = `site:
  name: Example Docs
  url: https://example.com/docs

theme:
  name: material

nav:
  - Home: index.md
  - Guide:
      - Install: guide/install.md

markdown_extensions:
  - admonition
  - toc:
      permalink: true

plugins:
  - search
  - redirects:
      redirect_maps:
        old/install.md: guide/install.md
`

// projectDir lays out a project root with a manifest and docs tree and
// returns the root plus the manifest path.
func projectDir(t *testing.T, manifestYAML string, docs map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	manifestPath := filepath.Join(root, "docsite.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestYAML), 0o644))
	for rel, body := range docs {
		p := filepath.Join(root, "docs", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root, manifestPath
}

func decodeManifest(t *testing.T, yaml string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Decode([]byte(yaml))
	require.NoError(t, err)
	return m
}

// pageWritingRenderer simulates a generator run by writing site pages.
type pageWritingRenderer struct {
	pages        map[string]string
	manifestPath string
	siteDir      string
}

func (r *pageWritingRenderer) Execute(_ context.Context, manifestPath, siteDir string) error {
	r.manifestPath = manifestPath
	r.siteDir = siteDir
	for rel, body := range r.pages {
		p := filepath.Join(siteDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type failingRenderer struct{}

func (failingRenderer) Execute(context.Context, string, string) error {
	return errors.New("generator exploded")
}

// logAppendingRenderer marks its invocation in a shared log file so tests
// can observe where the generator ran relative to the hook events.
type logAppendingRenderer struct{ logPath string }

func (r logAppendingRenderer) Execute(context.Context, string, string) error {
	f, err := os.OpenFile(r.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString("generator\n")
	return err
}

func TestBuild_CleanManifest_Succeeds(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 2, report.Docs)
	require.Equal(t, 2, report.NavLeaves)
	require.Equal(t, 1, report.Redirects)
	require.NotEmpty(t, report.RunID)
	require.False(t, report.StaticRendered)

	for _, stage := range []string{"scan_docs", "validate_manifest", "audit_links", "run_generator", "emit_redirects", "verify_redirects"} {
		require.Contains(t, report.StageDurations, stage)
	}
	require.Empty(t, report.StageErrorKinds)
}

func TestBuild_EmitsRedirectStubs(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.StubsWritten)
	stub := filepath.Join(root, "site", "old", "install", "index.html")
	body, err := os.ReadFile(stub)
	require.NoError(t, err)
	require.Contains(t, string(body), "url=../../guide/install/")

	// The generator never ran, so stub verification is skipped.
	for _, issue := range report.Issues {
		require.NotEqual(t, validate.RuleRedirectStub, issue.Rule)
	}
}

func TestBuild_ValidationErrors_AbortBeforeRender(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md": "# Home\n",
		// guide/install.md is missing: nav leaf dangles.
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryReference))

	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, "fatal", report.StageErrorKinds["validate_manifest"])
	require.NotContains(t, report.StageDurations, "run_generator")
	require.NotContains(t, report.StageDurations, "emit_redirects")

	rules := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		rules = append(rules, issue.Rule)
	}
	require.Contains(t, rules, validate.RuleNavLeafExists)
}

func TestBuild_WarningsDoNotAbort(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	yaml := `site:
  name: Example Docs
  url: /docs

theme:
  name: material

nav:
  - Home: index.md
`
	root, manifestPath := projectDir(t, yaml, map[string]string{"index.md": "# Home\n"})

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.Warnings, 1)
	require.Equal(t, "warning", report.StageErrorKinds["validate_manifest"])
	// Later stages still ran.
	require.Contains(t, report.StageDurations, "audit_links")
}

func TestBuild_StrictEscalatesWarnings(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	yaml := `site:
  name: Example Docs
  url: /docs

theme:
  name: material

nav:
  - Home: index.md
`
	root, manifestPath := projectDir(t, yaml, map[string]string{"index.md": "# Home\n"})

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root, Strict: true}).Build(context.Background())
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, "fatal", report.StageErrorKinds["validate_manifest"])
}

func TestBuild_BrokenDocLink_ReportsAuditWarning(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	yaml := `site:
  name: Example Docs
  url: https://example.com/docs

theme:
  name: material

nav:
  - Home: index.md
`
	root, manifestPath := projectDir(t, yaml, map[string]string{
		"index.md": "# Home\n\nSee [the guide](guide/missing.md).\n",
	})

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Equal(t, "warning", report.StageErrorKinds["audit_links"])

	var found bool
	for _, issue := range report.Issues {
		if issue.Rule == validate.RuleDocLink {
			found = true
		}
	}
	require.True(t, found, "expected a doc-link issue in the report")
}

func TestBuild_GeneratorRendersAndStubsVerify(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "1")
	t.Setenv("DOCSITE_SKIP_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	renderer := &pageWritingRenderer{pages: map[string]string{
		"index.html":               "<html>home</html>",
		"guide/install/index.html": "<html>install</html>",
	}}
	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).
		WithRenderer(renderer).
		Build(context.Background())
	require.NoError(t, err)

	require.True(t, report.StaticRendered)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, manifestPath, renderer.manifestPath)
	require.Equal(t, filepath.Join(root, "site"), renderer.siteDir)
	require.Contains(t, report.StageDurations, "verify_redirects")
}

func TestBuild_GeneratorFailure_IsFatal(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "1")
	t.Setenv("DOCSITE_SKIP_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).
		WithRenderer(failingRenderer{}).
		Build(context.Background())
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryGenerator))

	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, "fatal", report.StageErrorKinds["run_generator"])
	require.NotContains(t, report.StageDurations, "emit_redirects")
}

func TestBuild_SkipGeneratorWinsOverRun(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "1")
	t.Setenv("DOCSITE_SKIP_GENERATOR", "1")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).
		WithRenderer(failingRenderer{}). // would fail if invoked
		Build(context.Background())
	require.NoError(t, err)
	require.False(t, report.StaticRendered)
}

func TestBuild_PreBuildHookFailure_Aborts(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	yaml := `site:
  name: Example Docs

theme:
  name: material

nav:
  - Home: index.md

hooks:
  - broken.sh
`
	root, manifestPath := projectDir(t, yaml, map[string]string{"index.md": "# Home\n"})
	script := filepath.Join(root, "broken.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryHook))

	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Contains(t, report.StageDurations, "validate_manifest", "validation precedes the startup event")
	require.NotContains(t, report.StageDurations, "run_generator")
	require.NotContains(t, report.StageDurations, "emit_redirects")
}

func TestBuild_ValidationFailure_SkipsHooks(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	yaml := `site:
  name: Example Docs

theme:
  name: material

nav:
  - Home: index.md
  - Guide:
      - Install: guide/install.md

hooks:
  - mark.sh
`
	// guide/install.md is deliberately absent so validation fails.
	root, manifestPath := projectDir(t, yaml, map[string]string{"index.md": "# Home\n"})
	marker := filepath.Join(root, "hook-ran")
	script := filepath.Join(root, "mark.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
echo "$1" >> "`+marker+`"
`), 0o755))

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.Error(t, err)

	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, "fatal", report.StageErrorKinds["validate_manifest"])

	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr), "hooks must not fire for a manifest that fails validation")
}

func TestBuild_HookEventOrder(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "1")
	yaml := `site:
  name: Example Docs

theme:
  name: material

nav:
  - Home: index.md

hooks:
  - events.sh
`
	root, manifestPath := projectDir(t, yaml, map[string]string{"index.md": "# Home\n"})
	logFile := filepath.Join(root, "events.log")
	script := filepath.Join(root, "events.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
echo "$1" >> "`+logFile+`"
`), 0o755))

	m := decodeManifest(t, yaml)
	report, err := New(m, manifestPath, Options{BaseDir: root}).
		WithRenderer(logAppendingRenderer{logPath: logFile}).
		Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Equal(t, "startup\npre_build\ngenerator\npost_build\nshutdown\n", string(data))

	require.Contains(t, report.HookDurations, "startup/events.sh")
	require.Contains(t, report.HookDurations, "shutdown/events.sh")
}

func TestBuild_CanceledContext(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeCanceled, report.Outcome)
	require.Equal(t, "canceled", report.StageErrorKinds["scan_docs"])
}

func TestReport_Persist(t *testing.T) {
	t.Setenv("DOCSITE_RUN_GENERATOR", "")
	root, manifestPath := projectDir(t, cleanManifest, map[string]string{
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
	})

	m := decodeManifest(t, cleanManifest)
	report, err := New(m, manifestPath, Options{BaseDir: root}).Build(context.Background())
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, report.Persist(out))

	raw, err := os.ReadFile(filepath.Join(out, "build-report.json"))
	require.NoError(t, err)
	var got ReportSerializable
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, 1, got.SchemaVersion)
	require.Equal(t, report.RunID, got.RunID)
	require.Equal(t, "success", got.Outcome)
	require.Equal(t, 2, got.Docs)

	summary, err := os.ReadFile(filepath.Join(out, "build-report.txt"))
	require.NoError(t, err)
	require.Contains(t, string(summary), "outcome=success")
}

func TestReport_DeriveOutcome(t *testing.T) {
	r := newReport("docsite.yaml")
	r.deriveOutcome()
	require.Equal(t, OutcomeSuccess, r.Outcome)

	r = newReport("docsite.yaml")
	r.Warnings = append(r.Warnings, errors.New("shaky"))
	r.deriveOutcome()
	require.Equal(t, OutcomeWarning, r.Outcome)

	r = newReport("docsite.yaml")
	r.Errors = append(r.Errors, newFatalStageError("scan_docs", errors.New("boom")))
	r.deriveOutcome()
	require.Equal(t, OutcomeFailed, r.Outcome)

	r = newReport("docsite.yaml")
	r.Errors = append(r.Errors, newCanceledStageError("scan_docs", context.Canceled))
	r.deriveOutcome()
	require.Equal(t, OutcomeCanceled, r.Outcome)
}

func TestIssueCategory(t *testing.T) {
	require.Equal(t, derrors.CategoryReference, issueCategory(validate.RuleNavLeafExists))
	require.Equal(t, derrors.CategoryReference, issueCategory(validate.RuleRedirectChain))
	require.Equal(t, derrors.CategoryPlugin, issueCategory(validate.RulePluginUnknown))
	require.Equal(t, derrors.CategoryPlugin, issueCategory(validate.RuleExtensionOptions))
	require.Equal(t, derrors.CategorySchema, issueCategory(validate.RuleSiteName))
}

func TestStageError_UnwrapPreservesCategory(t *testing.T) {
	cause := derrors.ReferenceError("dangling")
	se := newFatalStageError("validate_manifest", cause)
	require.True(t, derrors.IsCategory(se, derrors.CategoryReference))
	require.ErrorContains(t, se, "validate_manifest")
}
