//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the shared tracing and metrics state of the
// evaluation engine. The exporters are configured by telemetry/trace
// and telemetry/metric; until then every handle is a no-op.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// telemetry service constants.
const (
	ServiceName      = "piqi"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "piqi-framework"
	InstrumentName   = "piqi.go"

	OperationEvaluate = "evaluate_message"
	OperationSAMCall  = "execute_sam"
)

// Tracer traces evaluation runs. telemetry/trace.Start replaces it with
// the tracer of the configured provider.
var Tracer = otel.Tracer(InstrumentName)

// Span and metric attribute keys.
var (
	KeyMessageID   = attribute.Key("piqi.message.id")
	KeyRubric      = attribute.Key("piqi.rubric.mnemonic")
	KeyScore       = attribute.Key("piqi.score")
	KeyPartial     = attribute.Key("piqi.partial")
	KeySlotCount   = attribute.Key("piqi.slot.count")
	KeySAMMnemonic = attribute.Key("piqi.sam.mnemonic")
	KeySAMState    = attribute.Key("piqi.sam.state")
)

// NewEvaluateSpanName names the span of one evaluation run, for example
// "evaluate_message msg-42".
func NewEvaluateSpanName(messageID string) string {
	if messageID == "" {
		return OperationEvaluate
	}
	return fmt.Sprintf("%s %s", OperationEvaluate, messageID)
}
