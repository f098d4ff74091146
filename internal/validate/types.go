// Package validate checks a loaded manifest against the documentation source
// tree and the installed extension/plugin inventory. Every finding is
// collected into a Result so the operator sees the full picture in one run.
package validate

// Severity indicates the importance level of a validation issue.
type Severity int

const (
	// SeverityInfo indicates informational findings.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but don't block builds.
	SeverityWarning
	// SeverityError indicates issues that abort a build.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Rule identifiers, stable for machine consumption.
const (
	RuleSiteName             = "site-name-required"
	RuleSiteURL              = "site-url-shape"
	RuleThemeKnown           = "theme-known"
	RulePaletteMedia         = "palette-media-query"
	RulePaletteScheme        = "palette-scheme-known"
	RuleFeatureDuplicate     = "feature-duplicate"
	RuleNavLeafExists        = "nav-leaf-exists"
	RuleNavLeafIsDocument    = "nav-leaf-is-document"
	RuleNavDuplicateLabel    = "nav-duplicate-label"
	RuleRedirectTarget       = "redirect-target-is-nav-leaf"
	RuleRedirectChain        = "redirect-chain"
	RuleRedirectStub         = "redirect-stub-resolves"
	RuleRedirectDuplicateKey = "redirect-duplicate-key"
	RuleRedirectShadowed     = "redirect-source-shadowed"
	RuleRedirectSelf         = "redirect-self"
	RuleExtensionUnknown     = "extension-unknown"
	RuleExtensionOptions     = "extension-options"
	RulePluginUnknown        = "plugin-unknown"
	RulePluginOptions        = "plugin-options"
	RuleHookExists           = "hook-script-exists"
	RuleHookExecutable       = "hook-script-executable"
	RuleDocLink              = "doc-link-resolves"
)

// Issue represents a single validation problem.
type Issue struct {
	Path     string   // the offending element: document path, plugin id, hook script
	Severity Severity // issue severity level
	Rule     string   // rule identifier (e.g., "nav-leaf-exists")
	Message  string   // brief description of the issue
	Detail   string   // longer explanation with context
	Fix      string   // suggested fix
}

// Result contains all issues found during validation.
type Result struct {
	Issues    []Issue
	DocsTotal int // documents scanned in the source tree
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// Merge appends another result's issues, keeping the larger scan count.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
	if other.DocsTotal > r.DocsTotal {
		r.DocsTotal = other.DocsTotal
	}
}
