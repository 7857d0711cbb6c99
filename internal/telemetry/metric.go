//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterNameEvaluation is the meter covering evaluation runs.
const MeterNameEvaluation = "piqi_evaluation"

// Metric names.
const (
	MetricEvaluationRunCnt      = "piqi.evaluation.run.count"
	MetricEvaluationRunDuration = "piqi.evaluation.run.duration"
	MetricSAMCallCnt            = "piqi.sam.call.count"
)

// Instruments default to no-ops so recording is safe before
// telemetry/metric.Start configures the real provider.
var (
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	EvaluationMeter             metric.Meter            = MeterProvider.Meter(MeterNameEvaluation)
	EvaluationMetricRunCnt      metric.Int64Counter     = noop.Int64Counter{}
	EvaluationMetricRunDuration metric.Float64Histogram = noop.Float64Histogram{}
	EvaluationMetricSAMCallCnt  metric.Int64Counter     = noop.Int64Counter{}
)

// IncEvaluationRunCnt counts one completed evaluation run.
func IncEvaluationRunCnt(ctx context.Context, rubricMnemonic string, partial bool) {
	EvaluationMetricRunCnt.Add(ctx, 1,
		metric.WithAttributes(
			KeyRubric.String(rubricMnemonic),
			KeyPartial.Bool(partial),
		))
}

// RecordEvaluationRunDuration records the latency of one evaluation run.
func RecordEvaluationRunDuration(ctx context.Context, rubricMnemonic string, duration time.Duration) {
	EvaluationMetricRunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			KeyRubric.String(rubricMnemonic),
		))
}

// IncSAMCallCnt counts one assessment method dispatch by outcome state.
func IncSAMCallCnt(ctx context.Context, samMnemonic, state string) {
	EvaluationMetricSAMCallCnt.Add(ctx, 1,
		metric.WithAttributes(
			KeySAMMnemonic.String(samMnemonic),
			KeySAMState.String(state),
		))
}
