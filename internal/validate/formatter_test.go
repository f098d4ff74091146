package validate

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return &Result{
		DocsTotal: 4,
		Issues: []Issue{
			{
				Path:     "guide/old.md",
				Severity: SeverityError,
				Rule:     RuleNavLeafExists,
				Message:  `navigation entry "Old" points to a missing document`,
				Fix:      `did you mean "guide/new.md"?`,
			},
			{
				Path:     "theme.features",
				Severity: SeverityWarning,
				Rule:     RuleFeatureDuplicate,
				Message:  `feature flag "navigation.tabs" is listed more than once`,
			},
		},
	}
}

func TestTextFormatter_RendersIssuesAndSummary(t *testing.T) {
	var buf bytes.Buffer
	err := NewTextFormatter().Format(&buf, sampleResult(), "docsite.yaml")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "Validating manifest: docsite.yaml")
	require.Contains(t, out, "✗ guide/old.md")
	require.Contains(t, out, "⚠ theme.features")
	require.Contains(t, out, "4 documents scanned")
	require.Contains(t, out, "1 error (blocks build)")
	require.Contains(t, out, "1 warning (should fix)")
	require.Contains(t, out, `Fix: did you mean "guide/new.md"?`)
	require.Contains(t, out, "❌ Manifest has errors")
}

func TestTextFormatter_CleanResult_Celebrates(t *testing.T) {
	var buf bytes.Buffer
	err := NewTextFormatter().Format(&buf, &Result{DocsTotal: 2}, "docsite.yaml")
	require.NoError(t, err)

	require.Contains(t, buf.String(), "✨ Manifest passes validation!")
}

func TestJSONFormatter_EmitsCountsAndIssues(t *testing.T) {
	var buf bytes.Buffer
	err := NewJSONFormatter().Format(&buf, sampleResult(), "docsite.yaml")
	require.NoError(t, err)

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "docsite.yaml", out.Manifest)
	require.Equal(t, 4, out.DocsTotal)
	require.Equal(t, 1, out.ErrorCount)
	require.Equal(t, 1, out.WarningCount)
	require.Len(t, out.Issues, 2)
	require.Equal(t, "ERROR", out.Issues[0].Severity)
	require.Equal(t, RuleNavLeafExists, out.Issues[0].Rule)
}

func TestNewFormatter_SelectsByName(t *testing.T) {
	_, isJSON := NewFormatter("json").(*JSONFormatter)
	require.True(t, isJSON)

	_, isText := NewFormatter("text").(*TextFormatter)
	require.True(t, isText)

	_, isDefault := NewFormatter("").(*TextFormatter)
	require.True(t, isDefault)
}
