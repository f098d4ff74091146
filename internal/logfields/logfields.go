package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyManifest   = "manifest"
	KeyDocsDir    = "docs_dir"
	KeySiteDir    = "site_dir"
	KeyPath       = "path"
	KeyRule       = "rule"
	KeyStage      = "stage"
	KeyEvent      = "event"
	KeyHook       = "hook"
	KeyPlugin     = "plugin"
	KeyRunID      = "run_id"
	KeyVersion    = "version"
	KeyErrors     = "errors"
	KeyWarnings   = "warnings"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Manifest(path string) slog.Attr  { return slog.String(KeyManifest, path) }
func DocsDir(dir string) slog.Attr    { return slog.String(KeyDocsDir, dir) }
func SiteDir(dir string) slog.Attr    { return slog.String(KeySiteDir, dir) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Rule(name string) slog.Attr      { return slog.String(KeyRule, name) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }
func Hook(script string) slog.Attr    { return slog.String(KeyHook, script) }
func Plugin(id string) slog.Attr      { return slog.String(KeyPlugin, id) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Errors(n int) slog.Attr          { return slog.Int(KeyErrors, n) }
func Warnings(n int) slog.Attr        { return slog.Int(KeyWarnings, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
