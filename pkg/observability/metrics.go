// Copyright 2025 The Looper Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// LoopMetrics mirrors the loop counters into OpenTelemetry instruments.
// The zero value is a safe no-op, used when metrics are disabled.
type LoopMetrics struct {
	iterationsTotal        metric.Int64Counter
	phaseExecutionsTotal   metric.Int64Counter
	tokensTotal            metric.Int64Counter
	failedToolExecutions   metric.Int64Counter
	falsePositiveSurprises metric.Int64Counter
}

// InitMetrics builds the OpenTelemetry instruments backed by a
// Prometheus exporter registered with the default registry. Disabled
// metrics return a no-op recorder.
func InitMetrics(ctx context.Context, enabled bool) (*LoopMetrics, error) {
	if !enabled {
		return &LoopMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("looper")

	iterations, err := meter.Int64Counter(
		"looper_iterations_total",
		metric.WithDescription("Total loop iterations completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterations counter: %w", err)
	}

	phases, err := meter.Int64Counter(
		"looper_phase_executions_total",
		metric.WithDescription("Total phase executions by phase"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create phase executions counter: %w", err)
	}

	tokens, err := meter.Int64Counter(
		"looper_tokens_total",
		metric.WithDescription("Total reasoner tokens by tier"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens counter: %w", err)
	}

	failed, err := meter.Int64Counter(
		"looper_failed_tool_executions_total",
		metric.WithDescription("Total denied actuator dispatches"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed tool executions counter: %w", err)
	}

	falsePositives, err := meter.Int64Counter(
		"looper_false_positive_surprises_total",
		metric.WithDescription("Total surprises that produced an empty plan"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create false positive surprises counter: %w", err)
	}

	return &LoopMetrics{
		iterationsTotal:        iterations,
		phaseExecutionsTotal:   phases,
		tokensTotal:            tokens,
		failedToolExecutions:   failed,
		falsePositiveSurprises: falsePositives,
	}, nil
}

func (m *LoopMetrics) RecordIteration(ctx context.Context) {
	if m == nil || m.iterationsTotal == nil {
		return
	}
	m.iterationsTotal.Add(ctx, 1)
}

func (m *LoopMetrics) RecordPhase(ctx context.Context, phase string) {
	if m == nil || m.phaseExecutionsTotal == nil {
		return
	}
	m.phaseExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}

func (m *LoopMetrics) RecordTokens(ctx context.Context, tier string, tokens int) {
	if m == nil || m.tokensTotal == nil || tokens <= 0 {
		return
	}
	m.tokensTotal.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("tier", tier)))
}

func (m *LoopMetrics) RecordFailedToolExecution(ctx context.Context) {
	if m == nil || m.failedToolExecutions == nil {
		return
	}
	m.failedToolExecutions.Add(ctx, 1)
}

func (m *LoopMetrics) RecordFalsePositiveSurprise(ctx context.Context) {
	if m == nil || m.falsePositiveSurprises == nil {
		return
	}
	m.falsePositiveSurprises.Add(ctx, 1)
}
