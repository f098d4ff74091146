package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docsite/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Docs        string        `help:"Docs source directory (defaults to docs/ beside the manifest)"`
	Site        string        `help:"Output directory for the generated site"`
	Strict      bool          `help:"Escalate validation warnings to build failures"`
	Every       time.Duration `help:"Scheduled full revalidation interval (0 disables)"`
	Debounce    time.Duration `default:"2s" help:"Quiet window before a change burst triggers a rebuild"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics and health on this address"`
	NatsURL     string        `name:"nats-url" help:"Publish build reports to this NATS JetStream server"`
	Subject     string        `default:"docsite.builds" help:"JetStream subject for build reports"`
	Bucket      string        `default:"docsite-fingerprints" help:"JetStream KV bucket for document fingerprints"`
}

// Run executes the watch command. It blocks until interrupted.
func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon := watch.NewDaemon(watch.Options{
		ManifestPath: root.Config,
		DocsDir:      w.Docs,
		SiteDir:      w.Site,
		Strict:       w.Strict,
		Quiet:        w.Debounce,
		Revalidate:   w.Every,
		Addr:         w.MetricsAddr,
		NATSURL:      w.NatsURL,
		Subject:      w.Subject,
		KVBucket:     w.Bucket,
	})
	return daemon.Run(ctx)
}
