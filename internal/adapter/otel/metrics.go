package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "gatekeeper"

// Metrics holds all guardrail metric instruments.
type Metrics struct {
	TurnsHandled      metric.Int64Counter
	TurnsDenied       metric.Int64Counter
	ToolExecutions    metric.Int64Counter
	ExecutionFailures metric.Int64Counter
	ProposalsCreated  metric.Int64Counter
	BreakerTrips      metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TurnsHandled, err = meter.Int64Counter("gatekeeper.turns.handled",
		metric.WithDescription("Number of turns processed"))
	if err != nil {
		return nil, err
	}

	m.TurnsDenied, err = meter.Int64Counter("gatekeeper.turns.denied",
		metric.WithDescription("Number of turns denied by rate limit or breaker"))
	if err != nil {
		return nil, err
	}

	m.ToolExecutions, err = meter.Int64Counter("gatekeeper.tool.executions",
		metric.WithDescription("Number of tool executions"))
	if err != nil {
		return nil, err
	}

	m.ExecutionFailures, err = meter.Int64Counter("gatekeeper.tool.failures",
		metric.WithDescription("Number of failed tool executions"))
	if err != nil {
		return nil, err
	}

	m.ProposalsCreated, err = meter.Int64Counter("gatekeeper.proposals.created",
		metric.WithDescription("Number of proposals created"))
	if err != nil {
		return nil, err
	}

	m.BreakerTrips, err = meter.Int64Counter("gatekeeper.breaker.trips",
		metric.WithDescription("Number of circuit breaker trips"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
