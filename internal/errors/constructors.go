package errors

// Convenience constructors for common error patterns

// Manifest errors

func ManifestNotFound(path string) *SiteError {
	return New(CategorySchema, SeverityFatal, "manifest file not found").
		WithContext("path", path)
}

func ManifestParse(path string, cause error) *SiteError {
	return Wrap(cause, CategorySchema, SeverityFatal, "manifest is not well-formed").
		WithContext("path", path)
}

func DanglingNavPath(label, path string) *SiteError {
	return New(CategoryReference, SeverityError, "navigation entry points to a missing document").
		WithContext("label", label).
		WithContext("path", path)
}

func BrokenRedirect(from, to string) *SiteError {
	return New(CategoryReference, SeverityError, "redirect target is not a navigation leaf").
		WithContext("from", from).
		WithContext("to", to)
}

func UnknownPlugin(id string) *SiteError {
	return New(CategoryPlugin, SeverityError, "plugin is not installed").
		WithContext("plugin", id)
}

func UnknownOption(plugin, option string) *SiteError {
	return New(CategoryPlugin, SeverityError, "plugin does not accept this option").
		WithContext("plugin", plugin).
		WithContext("option", option)
}

// Build pipeline errors

func StageFailed(stage string, cause error) *SiteError {
	return Wrap(cause, CategoryGenerator, SeverityFatal, "build stage failed").
		WithContext("stage", stage)
}

func HookFailed(script, event string, cause error) *SiteError {
	return Wrap(cause, CategoryHook, SeverityError, "hook script failed").
		WithContext("script", script).
		WithContext("event", event)
}

// Git errors

func TagScanError(cause error) *SiteError {
	return Wrap(cause, CategoryGit, SeverityError, "version tag scan failed")
}

// Internal errors

func InternalError(message string, cause error) *SiteError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
