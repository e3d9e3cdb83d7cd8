package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel enumerates the final status of a locale build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for pipeline stages, locale builds,
// static copies and watch triggers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveLocaleBuild(locale string, d time.Duration, outcome BuildOutcomeLabel)
	ObserveStaticCopy(d time.Duration, success bool)
	IncWatchTrigger(tree, action string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)                  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                          {}
func (NoopRecorder) ObserveLocaleBuild(string, time.Duration, BuildOutcomeLabel) {}
func (NoopRecorder) ObserveStaticCopy(time.Duration, bool)                       {}
func (NoopRecorder) IncWatchTrigger(string, string, bool)                        {}
