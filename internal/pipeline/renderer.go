package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// DefaultGeneratorCommand is the external site generator binary invoked by
// the render stage when generator execution is enabled.
const DefaultGeneratorCommand = "mkdocs"

// Renderer abstracts the static site generator invocation so tests and
// alternate strategies can substitute implementations without touching the
// stage orchestration.
type Renderer interface {
	// Execute renders the site described by the manifest into siteDir.
	Execute(ctx context.Context, manifestPath, siteDir string) error
}

// BinaryRenderer shells out to the generator binary on PATH.
type BinaryRenderer struct {
	// Command overrides the generator binary name. Empty means
	// DefaultGeneratorCommand.
	Command string
}

func (r *BinaryRenderer) Execute(ctx context.Context, manifestPath, siteDir string) error {
	command := r.Command
	if command == "" {
		command = DefaultGeneratorCommand
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("generator binary %q not found in PATH: %w", command, err)
	}

	cmd := exec.CommandContext(ctx, command, "build", "--config-file", manifestPath, "--site-dir", siteDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking site generator",
		slog.String("command", command),
		logfields.Manifest(manifestPath),
		logfields.SiteDir(siteDir))

	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		slog.Debug("Generator stdout", slog.String("output", out))
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		slog.Warn("Generator stderr", slog.String("output", out))
	}
	if err != nil {
		// Include captured stderr so the failure is actionable without
		// re-running the generator by hand.
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// NoopRenderer skips generator execution. Used when the generator gate is
// closed and in tests.
type NoopRenderer struct{}

func (NoopRenderer) Execute(context.Context, string, string) error { return nil }

// generatorEnabled reports whether the render stage should invoke the
// external generator. Opt-in via DOCSITE_RUN_GENERATOR=1; an explicit
// DOCSITE_SKIP_GENERATOR=1 wins over everything.
func generatorEnabled() bool {
	if os.Getenv("DOCSITE_SKIP_GENERATOR") == "1" {
		return false
	}
	return os.Getenv("DOCSITE_RUN_GENERATOR") == "1"
}
