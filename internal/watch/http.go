package watch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// serveHTTP binds the metrics/health listener and returns a shutdown func.
// Binding happens eagerly so an occupied port fails the daemon at startup
// instead of surfacing later as a silent missing endpoint.
func (d *Daemon) serveHTTP() (func(), error) {
	ln, err := net.Listen("tcp", d.opts.Addr)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to bind metrics listener")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	mux.HandleFunc("/healthz", d.handleHealth)
	mux.HandleFunc("/report", d.handleReport)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	slog.Info("Metrics server listening", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}, nil
}

type healthResponse struct {
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	Builds      bool      `json:"has_built"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastOutcome string    `json:"last_outcome,omitempty"`
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	resp := healthResponse{
		Status:    "ok",
		StartedAt: d.startedAt,
	}
	if d.lastReport != nil {
		resp.Builds = true
		resp.LastRunID = d.lastReport.RunID
		resp.LastOutcome = string(d.lastReport.Outcome)
	}
	d.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write health response", logfields.Error(err))
	}
}

func (d *Daemon) handleReport(w http.ResponseWriter, _ *http.Request) {
	report := d.LastReport()
	if report == nil {
		http.Error(w, "no build has completed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report.Serializable()); err != nil {
		slog.Warn("Failed to write report response", logfields.Error(err))
	}
}
