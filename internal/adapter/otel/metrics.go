package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "deskforge"

// Metrics holds all DeskForge metric instruments.
type Metrics struct {
	RequestsProcessed metric.Int64Counter
	RequestsFailed    metric.Int64Counter
	LowConfidence     metric.Int64Counter
	Rollbacks         metric.Int64Counter
	PipelineDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RequestsProcessed, err = meter.Int64Counter("deskforge.requests.processed",
		metric.WithDescription("Number of requests processed successfully"))
	if err != nil {
		return nil, err
	}

	m.RequestsFailed, err = meter.Int64Counter("deskforge.requests.failed",
		metric.WithDescription("Number of requests that failed"))
	if err != nil {
		return nil, err
	}

	m.LowConfidence, err = meter.Int64Counter("deskforge.requests.low_confidence",
		metric.WithDescription("Number of requests rejected by the confidence gate"))
	if err != nil {
		return nil, err
	}

	m.Rollbacks, err = meter.Int64Counter("deskforge.rollbacks",
		metric.WithDescription("Number of rollback invocations"))
	if err != nil {
		return nil, err
	}

	m.PipelineDuration, err = meter.Float64Histogram("deskforge.pipeline.duration_seconds",
		metric.WithDescription("End-to-end pipeline duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
