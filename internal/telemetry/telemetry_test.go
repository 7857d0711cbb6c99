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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEvaluateSpanName(t *testing.T) {
	assert.Equal(t, "evaluate_message msg-1", NewEvaluateSpanName("msg-1"))
	assert.Equal(t, "evaluate_message", NewEvaluateSpanName(""))
}

func TestRecordingIsSafeWithoutProvider(t *testing.T) {
	ctx := context.Background()
	IncEvaluationRunCnt(ctx, "core", true)
	RecordEvaluationRunDuration(ctx, "core", time.Second)
	IncSAMCallCnt(ctx, "attribute-populated", "SUCCEEDED")
}
