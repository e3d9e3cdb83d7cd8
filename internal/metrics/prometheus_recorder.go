package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	localeDuration *prom.HistogramVec
	localeOutcomes *prom.CounterVec
	staticDuration prom.Histogram
	staticResults  *prom.CounterVec
	watchTriggers  *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		localeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "locale_build_duration_seconds",
			Help:      "Duration of single-locale build passes",
			Buckets:   prom.DefBuckets,
		}, []string{"locale"}),
		localeOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "locale_build_outcomes_total",
			Help:      "Locale build outcomes by final status",
		}, []string{"locale", "outcome"}),
		staticDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "static_copy_duration_seconds",
			Help:      "Duration of static asset copies",
			Buckets:   prom.DefBuckets,
		}),
		staticResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "static_copy_results_total",
			Help:      "Static asset copies by success/failure",
		}, []string{"result"}),
		watchTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Rebuilds triggered by the watch scheduler",
		}, []string{"tree", "action", "result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.localeDuration, pr.localeOutcomes,
		pr.staticDuration, pr.staticResults, pr.watchTriggers)
	return pr
}

func resultOf(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveLocaleBuild(locale string, d time.Duration, outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.localeDuration.WithLabelValues(locale).Observe(d.Seconds())
	p.localeOutcomes.WithLabelValues(locale, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStaticCopy(d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.staticDuration.Observe(d.Seconds())
	p.staticResults.WithLabelValues(resultOf(success)).Inc()
}

func (p *PrometheusRecorder) IncWatchTrigger(tree, action string, success bool) {
	if p == nil {
		return
	}
	p.watchTriggers.WithLabelValues(tree, action, resultOf(success)).Inc()
}
