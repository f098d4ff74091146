package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// Stage is a single build pipeline step operating on shared BuildState.
type Stage func(ctx context.Context, bs *BuildState) error

// stageEntry pairs a stage with its report name.
type stageEntry struct {
	name string
	fn   Stage
}

// StageErrorKind classifies how a stage failure affects the build.
type StageErrorKind string

const (
	// StageErrorFatal aborts the build immediately.
	StageErrorFatal StageErrorKind = "fatal"
	// StageErrorWarning is recorded but lets the pipeline continue.
	StageErrorWarning StageErrorKind = "warning"
	// StageErrorCanceled propagates context cancellation.
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError wraps an error produced by a stage with its classification.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarningStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// runStages executes stages sequentially, recording per-stage durations and
// outcomes on the report. Warnings are collected and the pipeline keeps
// going; fatal errors and cancellations abort and are returned.
func (b *Builder) runStages(ctx context.Context, bs *BuildState, stages []stageEntry) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.name, ctx.Err())
			bs.Report.Errors = append(bs.Report.Errors, se)
			bs.Report.StageErrorKinds[st.name] = string(se.Kind)
			b.recorder.IncStageResult(st.name, metrics.ResultCanceled)
			return se
		default:
		}

		start := time.Now()
		err := st.fn(ctx, bs)
		elapsed := time.Since(start)
		bs.Report.StageDurations[st.name] = elapsed

		b.recorder.ObserveStageDuration(st.name, elapsed)

		if err == nil {
			slog.Debug("Stage completed",
				logfields.Stage(st.name),
				logfields.DurationMS(float64(elapsed.Milliseconds())))
			b.recorder.IncStageResult(st.name, metrics.ResultSuccess)
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			se = newFatalStageError(st.name, err)
		}
		bs.Report.StageErrorKinds[st.name] = string(se.Kind)

		switch se.Kind {
		case StageErrorWarning:
			slog.Warn("Stage reported warnings", logfields.Stage(st.name), logfields.Error(se.Err))
			bs.Report.Warnings = append(bs.Report.Warnings, se)
			b.recorder.IncStageResult(st.name, metrics.ResultWarning)
			continue
		case StageErrorCanceled:
			slog.Info("Stage canceled", logfields.Stage(st.name))
			bs.Report.Errors = append(bs.Report.Errors, se)
			b.recorder.IncStageResult(st.name, metrics.ResultCanceled)
			return se
		default:
			slog.Error("Stage failed", logfields.Stage(st.name), logfields.Error(se.Err))
			bs.Report.Errors = append(bs.Report.Errors, se)
			b.recorder.IncStageResult(st.name, metrics.ResultFatal)
			return se
		}
	}
	return nil
}
