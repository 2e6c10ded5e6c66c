// Package observability provides logrus logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Structured Logging
//
// Create logger:
//
//	log := observability.NewLogger(observability.InfoLevel, observability.FormatText, os.Stderr)
//	log.WithField("container", name).Info("Container started")
//
// Components accept a logrus.FieldLogger and fall back to OrDefault(nil).
//
// # Prometheus Metrics
//
// A dockgen run is a short-lived process, so metrics are pushed instead of scraped:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	defer metrics.Push(ctx, "http://pushgateway:9091", "dockgen")
//
// Every *Metrics method is a no-op on a nil receiver.
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, cfg, log)
//	defer observability.ShutdownTracing(ctx, tp)
//
// Orchestration stages open spans on observability.Tracer().
package observability
