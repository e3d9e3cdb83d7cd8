package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

// Observer receives callbacks around stage execution and pass completion.
type Observer interface {
	OnStageStart(ctx context.Context, pass *Pass, stage StageName)
	OnStageComplete(ctx context.Context, pass *Pass, stage StageName, d time.Duration, result StageResult)
	OnPassComplete(ctx context.Context, pass *Pass)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(context.Context, *Pass, StageName)                                {}
func (NoopObserver) OnStageComplete(context.Context, *Pass, StageName, time.Duration, StageResult) {}
func (NoopObserver) OnPassComplete(context.Context, *Pass)                                         {}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(context.Context, *Pass, StageName) {}

func (r RecorderObserver) OnStageComplete(_ context.Context, _ *Pass, stage StageName, d time.Duration, result StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
		r.Recorder.IncStageResult(string(stage), metrics.ResultLabel(result))
	}
}

func (r RecorderObserver) OnPassComplete(context.Context, *Pass) {}

// LogObserver writes stage progress and the pass report at debug level.
type LogObserver struct{}

func (LogObserver) OnStageStart(ctx context.Context, _ *Pass, stage StageName) {
	observability.DebugContext(observability.WithStage(ctx, string(stage)), "stage started")
}

func (LogObserver) OnStageComplete(ctx context.Context, pass *Pass, stage StageName, d time.Duration, result StageResult) {
	observability.DebugContext(observability.WithStage(ctx, string(stage)), "stage finished",
		logfields.Elapsed(d),
		logfields.Items(pass.Report.ItemCount(stage)),
		slog.String("result", string(result)))
}

func (LogObserver) OnPassComplete(ctx context.Context, pass *Pass) {
	slog.LogAttrs(ctx, slog.LevelDebug, "build pass report", pass.Report.LogAttrs()...)
}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (o Observers) OnStageStart(ctx context.Context, pass *Pass, stage StageName) {
	for _, obs := range o {
		obs.OnStageStart(ctx, pass, stage)
	}
}

func (o Observers) OnStageComplete(ctx context.Context, pass *Pass, stage StageName, d time.Duration, result StageResult) {
	for _, obs := range o {
		obs.OnStageComplete(ctx, pass, stage, d, result)
	}
}

func (o Observers) OnPassComplete(ctx context.Context, pass *Pass) {
	for _, obs := range o {
		obs.OnPassComplete(ctx, pass)
	}
}
