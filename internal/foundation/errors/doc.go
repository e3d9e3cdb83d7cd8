// Package errors provides the classified error primitives used across sitebuilder.
//
// A ClassifiedError carries a category (what part of the build failed), a
// severity (whether the current invocation must stop) and structured context
// such as the locale or stage that failed. Errors are created with the fluent
// builder:
//
//	err := errors.WrapError(cause, errors.CategoryBuild, "pipeline stage failed").
//		WithContext("locale", "fr").
//		WithContext("stage", "render").
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
