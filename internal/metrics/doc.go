// Package metrics records build observability data.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	recorder := metrics.NoopRecorder{}
//	if cfg.Metrics.Enabled {
//	    recorder = metrics.NewPrometheusRecorder(registry)
//	}
//
// The serve command exposes the Prometheus registry through HTTPHandler.
package metrics
