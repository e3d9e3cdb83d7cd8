package pipeline

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in a build pass. A stage returns only
// after all of its per-item work has completed.
type Stage func(ctx context.Context, pass *Pass) error

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageLoad           StageName = "load"
	StageCollect        StageName = "collect"
	StageConvert        StageName = "convert"
	StageHighlight      StageName = "highlight"
	StageFilterPartials StageName = "filter_partials"
	StageCompileStyles  StageName = "compile_styles"
	StagePermalink      StageName = "permalink"
	StageFeeds          StageName = "feeds"
	StageRender         StageName = "render"
	StageWrite          StageName = "write"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Pass must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Builder is a fluent builder for ordered stage definitions.
type Builder struct{ defs []StageDef }

// NewBuilder creates an empty stage list.
func NewBuilder() *Builder { return &Builder{defs: make([]StageDef, 0, 10)} }

// Add appends a stage unconditionally.
func (b *Builder) Add(name StageName, fn Stage) *Builder {
	b.defs = append(b.defs, StageDef{Name: name, Fn: fn})
	return b
}

// AddIf appends a stage only if cond is true.
func (b *Builder) AddIf(cond bool, name StageName, fn Stage) *Builder {
	if cond {
		b.Add(name, fn)
	}
	return b
}

// Build returns a copy of the stage definitions.
func (b *Builder) Build() []StageDef {
	out := make([]StageDef, len(b.defs))
	copy(out, b.defs)
	return out
}
