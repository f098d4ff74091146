package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit    int    `short:"n" default:"20" help:"Maximum number of runs to show"`
	History  string `help:"History database path" default:"history.db"`
	Manifest string `help:"Only show runs for this manifest hash"`
}

// Run executes the history command.
func (h *HistoryCmd) Run(_ *Global, _ *CLI) error {
	store, err := history.Open(h.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var runs []history.Run
	if h.Manifest != "" {
		runs, err = store.ByManifestHash(ctx, h.Manifest, h.Limit)
	} else {
		runs, err = store.Recent(ctx, h.Limit)
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %-8s docs=%d errors=%d warnings=%d %dms  manifest=%.12s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.ID, run.Outcome, run.Docs, run.Errors, run.Warnings,
			run.DurationMS, run.ManifestHash)
	}
	return nil
}
