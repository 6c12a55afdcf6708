package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
)

const instrumentationName = "github.com/srujanaA02/multi-tenant-saas/internal/api"

type clientMetrics struct {
	requestsTotal metric.Int64Counter
	requestDur    metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter, logger *logging.Logger) *clientMetrics {
	m := &clientMetrics{}
	ctx := context.Background()
	var err error

	m.requestsTotal, err = meter.Int64Counter(
		"tracker.api.requests_total",
		metric.WithDescription("Requests sent to the tracker service, labeled by method, status and outcome kind."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = meter.Float64Histogram(
		"tracker.api.request_duration_seconds",
		metric.WithDescription("Round-trip time of requests to the tracker service in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	return m
}

func (m *clientMetrics) record(ctx context.Context, method string, status int, kind string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
		attribute.String("kind", kind),
	)
	if m.requestsTotal != nil {
		m.requestsTotal.Add(ctx, 1, attrs)
	}
	if m.requestDur != nil {
		m.requestDur.Record(ctx, elapsed.Seconds(), attrs)
	}
}
