// Package health serves the liveness endpoint of the profiler.
//
// GET /healthz answers 204 with an empty body while the invocation is
// healthy, and 500 with {"error":"Service is unhealthy"} otherwise. A new
// Server reports unhealthy until the runner has connected every transport
// resource and calls SetHealthy(true). The runner sets it back to false before
// releasing resources.
//
// When built WithMetricsHandler, the same listener also serves Prometheus
// metrics at /metrics:
//
//	srv := health.NewServer(cfg.HealthCheck.Port,
//	    health.WithMetricsHandler(registry.Handler()),
//	    health.WithStatusCallback(metrics.RecordHealthStatus),
//	    health.WithLogger(logger))
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Close(ctx)
package health
