package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("render", 150*time.Millisecond)
	pr.IncStageResult("render", ResultSuccess)
	pr.IncStageResult("render", ResultFatal)
	pr.ObserveLocaleBuild("en", time.Second, BuildOutcomeSuccess)
	pr.ObserveStaticCopy(10*time.Millisecond, false)
	pr.IncWatchTrigger("content", "locale_build", true)

	require.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues("render", "fatal")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.localeOutcomes.WithLabelValues("en", "success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.staticResults.WithLabelValues("failed")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.watchTriggers.WithLabelValues("content", "locale_build", "success")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.ObserveStageDuration("load", time.Millisecond)
		pr.IncWatchTrigger("static", "static_copy", false)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncStageResult("load", ResultSuccess)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `sitebuilder_stage_results_total{result="success",stage="load"} 1`))
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
