package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    interface{}
	}{
		{"Manifest", KeyManifest, "docsite.yaml", Manifest("docsite.yaml")},
		{"DocsDir", KeyDocsDir, "docs", DocsDir("docs")},
		{"SiteDir", KeySiteDir, "site", SiteDir("site")},
		{"Path", KeyPath, "guide/index.md", Path("guide/index.md")},
		{"Rule", KeyRule, "nav-leaf-exists", Rule("nav-leaf-exists")},
		{"Stage", KeyStage, "validate", Stage("validate")},
		{"Event", KeyEvent, "pre_build", Event("pre_build")},
		{"Hook", KeyHook, "scripts/gen.sh", Hook("scripts/gen.sh")},
		{"Plugin", KeyPlugin, "redirects", Plugin("redirects")},
		{"RunID", KeyRunID, "run-1", RunID("run-1")},
		{"Version", KeyVersion, "v0.58.0", Version("v0.58.0")},
	}

	for _, tc := range cases {
		a := tc.attr.(slog.Attr)
		if a.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, a.Key)
		}
		if got := a.Value.String(); got != tc.attrVal { // Value is slog.Value
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Errors(3); v.Key != KeyErrors {
		t.Fatalf("Errors key mismatch: %s", v.Key)
	}
	if v := Warnings(1); v.Key != KeyWarnings {
		t.Fatalf("Warnings key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
