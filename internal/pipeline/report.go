package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Report summarizes one build pass.
type Report struct {
	mu sync.Mutex

	BuildID        string
	Locale         string
	Start          time.Time
	End            time.Time
	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult
	// StageCounts records how many items each stage touched.
	StageCounts map[StageName]int
	// Outputs lists the written paths relative to the destination.
	Outputs []string
	Err     error
}

func newReport(buildID, locale string) *Report {
	return &Report{
		BuildID:        buildID,
		Locale:         locale,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
		StageCounts:    make(map[StageName]int),
	}
}

// Count records the number of items a stage processed.
func (r *Report) Count(stage StageName, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageCounts[stage] = n
}

// ItemCount returns the number of items stage processed.
func (r *Report) ItemCount(stage StageName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StageCounts[stage]
}

func (r *Report) recordStage(stage StageName, d time.Duration, result StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurations[stage] = d
	r.StageResults[stage] = result
}

func (r *Report) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	r.Err = err
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Succeeded reports whether every stage completed.
func (r *Report) Succeeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Err == nil && !r.End.IsZero()
}

// LogAttrs renders the report for a debug log record.
func (r *Report) LogAttrs() []slog.Attr {
	r.mu.Lock()
	defer r.mu.Unlock()
	attrs := []slog.Attr{
		logfields.BuildID(r.BuildID),
		logfields.Locale(r.Locale),
		logfields.Elapsed(r.End.Sub(r.Start)),
		slog.Int("outputs", len(r.Outputs)),
	}
	stages := make([]any, 0, len(r.StageDurations))
	for _, name := range stageOrder {
		d, ok := r.StageDurations[name]
		if !ok {
			continue
		}
		stages = append(stages, slog.Group(string(name),
			logfields.Elapsed(d),
			logfields.Items(r.StageCounts[name]),
			slog.String("result", string(r.StageResults[name])),
		))
	}
	return append(attrs, slog.Group("stages", stages...))
}

var stageOrder = []StageName{
	StageLoad, StageCollect, StageConvert, StageHighlight, StageFilterPartials,
	StageCompileStyles, StagePermalink, StageFeeds, StageRender, StageWrite,
}

func (r *Report) addOutputs(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outputs = append(r.Outputs, paths...)
}
