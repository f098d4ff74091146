// Package metrics provides observability hooks for manifest validation and
// site builds.
//
// The package follows the Null Object pattern: components receive a Recorder
// through dependency injection and default to NoopRecorder, so metrics can be
// activated by swapping in a real implementation without touching call sites
// and without nil checks along the hot path.
//
//	builder := pipeline.New(m, manifestPath, opts) // NoopRecorder by default
//	builder.WithRecorder(metrics.NewPrometheusRecorder(registry))
//
// The Prometheus implementation registers everything on a caller-provided
// registry; the watch daemon exposes that registry over HTTP.
package metrics
