package pipeline

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage. Warnings are recorded and the pass continues.
func RunStages(ctx context.Context, pass *Pass, stages []StageDef, obs Observer) error {
	if obs == nil {
		obs = NoopObserver{}
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := NewCanceledStageError(st.Name, err)
			pass.Report.recordStage(st.Name, 0, StageResultCanceled)
			obs.OnStageComplete(ctx, pass, st.Name, 0, StageResultCanceled)
			return se
		}

		stageCtx := observability.WithStage(ctx, string(st.Name))
		obs.OnStageStart(stageCtx, pass, st.Name)

		t0 := time.Now()
		err := st.Fn(stageCtx, pass)
		dur := time.Since(t0)

		se, result := classifyStageResult(ctx, st.Name, err)
		pass.Report.recordStage(st.Name, dur, result)
		obs.OnStageComplete(stageCtx, pass, st.Name, dur, result)

		if se == nil {
			continue
		}
		if se.Kind == StageErrorWarning {
			observability.WarnContext(stageCtx, "stage completed with warnings", logfields.Error(se))
			continue
		}
		return se
	}
	return nil
}

// classifyStageResult normalizes a raw stage error. Errors that are not
// StageErrors are fatal, unless they come from a canceled context.
func classifyStageResult(ctx context.Context, stage StageName, err error) (*StageError, StageResult) {
	if err == nil {
		return nil, StageResultSuccess
	}
	var se *StageError
	if !errors.As(err, &se) {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			se = NewCanceledStageError(stage, err)
		} else {
			se = NewFatalStageError(stage, err)
		}
	}
	switch se.Kind {
	case StageErrorWarning:
		return se, StageResultWarning
	case StageErrorCanceled:
		return se, StageResultCanceled
	default:
		return se, StageResultFatal
	}
}
