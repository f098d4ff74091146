package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/hooks"
	"git.home.luguber.info/inful/docsite/internal/validate"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Report captures high-level metrics about one build run.
type Report struct {
	SchemaVersion   int
	RunID           string
	Manifest        string
	Docs            int
	NavLeaves       int
	Redirects       int
	StubsWritten    int
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing build abortion (at most one today)
	Warnings        []error // non-fatal stage issues
	Issues          []validate.Issue
	StageDurations  map[string]time.Duration
	StageErrorKinds map[string]string        // stage -> error kind (fatal|warning|canceled)
	HookDurations   map[string]time.Duration // "event/script" -> elapsed run time
	StaticRendered  bool                     // true if the external generator rendered the site
	Outcome         BuildOutcome
}

func newReport(manifestPath string) *Report {
	return &Report{
		SchemaVersion:   1,
		RunID:           uuid.NewString(),
		Manifest:        manifestPath,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[string]string),
	}
}

func (r *Report) finish() {
	if r.End.IsZero() {
		r.End = time.Now()
	}
}

// Duration returns the wall-clock build time.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// recordHookTimings stores per-script invocation durations keyed by
// "event/script", mirroring the stage duration map.
func (r *Report) recordHookTimings(timings []hooks.Timing) {
	if len(timings) == 0 {
		return
	}
	if r.HookDurations == nil {
		r.HookDurations = make(map[string]time.Duration, len(timings))
	}
	for _, t := range timings {
		r.HookDurations[string(t.Event)+"/"+t.Script] = t.Duration
	}
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("docs=%d nav_leaves=%d redirects=%d stubs=%d duration=%s errors=%d warnings=%d rendered=%t outcome=%s",
		r.Docs, r.NavLeaves, r.Redirects, r.StubsWritten,
		r.Duration().Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), r.StaticRendered, r.Outcome)
}

// deriveOutcome sets the Outcome field based on recorded errors and warnings.
func (r *Report) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Persist writes the report atomically into the provided directory:
//
//	build-report.json  (machine readable)
//	build-report.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change the
// build outcome.
func (r *Report) Persist(dir string) error {
	r.finish()
	if r.Outcome == "" {
		r.deriveOutcome()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}

	jb, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(dir, "build-report.json")
	tmpJSON := jsonPath + ".tmp"
	if err := os.WriteFile(tmpJSON, jb, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmpJSON, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}

	summaryPath := filepath.Join(dir, "build-report.txt")
	tmpTxt := summaryPath + ".tmp"
	if err := os.WriteFile(tmpTxt, []byte(r.Summary()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write temp report summary: %w", err)
	}
	if err := os.Rename(tmpTxt, summaryPath); err != nil {
		return fmt.Errorf("atomic rename summary: %w", err)
	}
	return nil
}

// ReportSerializable mirrors Report with JSON-friendly error strings.
type ReportSerializable struct {
	SchemaVersion   int                      `json:"schema_version"`
	RunID           string                   `json:"run_id"`
	Manifest        string                   `json:"manifest"`
	Docs            int                      `json:"docs"`
	NavLeaves       int                      `json:"nav_leaves"`
	Redirects       int                      `json:"redirects"`
	StubsWritten    int                      `json:"stubs_written"`
	Start           time.Time                `json:"start"`
	End             time.Time                `json:"end"`
	Errors          []string                 `json:"errors"`
	Warnings        []string                 `json:"warnings"`
	Issues          []ReportIssue            `json:"issues"`
	StageDurations  map[string]time.Duration `json:"stage_durations"`
	StageErrorKinds map[string]string        `json:"stage_error_kinds"`
	HookDurations   map[string]time.Duration `json:"hook_durations"`
	StaticRendered  bool                     `json:"static_rendered"`
	Outcome         string                   `json:"outcome"`
}

// ReportIssue is the JSON form of one validation or audit finding.
type ReportIssue struct {
	Path     string `json:"path"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// Serializable converts error values to strings for JSON friendliness.
func (r *Report) Serializable() *ReportSerializable {
	s := &ReportSerializable{
		SchemaVersion:   r.SchemaVersion,
		RunID:           r.RunID,
		Manifest:        r.Manifest,
		Docs:            r.Docs,
		NavLeaves:       r.NavLeaves,
		Redirects:       r.Redirects,
		StubsWritten:    r.StubsWritten,
		Start:           r.Start,
		End:             r.End,
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
		Issues:          make([]ReportIssue, len(r.Issues)),
		StageDurations:  r.StageDurations,
		StageErrorKinds: r.StageErrorKinds,
		HookDurations:   r.HookDurations,
		StaticRendered:  r.StaticRendered,
		Outcome:         string(r.Outcome),
	}
	if s.StageDurations == nil {
		s.StageDurations = map[string]time.Duration{}
	}
	if s.StageErrorKinds == nil {
		s.StageErrorKinds = map[string]string{}
	}
	if s.HookDurations == nil {
		s.HookDurations = map[string]time.Duration{}
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	for i, issue := range r.Issues {
		s.Issues[i] = ReportIssue{
			Path:     issue.Path,
			Severity: issue.Severity.String(),
			Rule:     issue.Rule,
			Message:  issue.Message,
		}
	}
	return s
}
