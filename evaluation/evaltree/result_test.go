//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package evaltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/evaluation/outcome"
	"github.com/piqi-framework/piqi-go/refdata"
)

func testCriterion(sam string, seq int) *refdata.Criterion {
	return &refdata.Criterion{Sequence: seq, SamMnemonic: sam, EntityMnemonic: "TestCode", ScoringWeight: 2}
}

func TestResultFinalizeOnce(t *testing.T) {
	r := NewResult(&Item{Key: "k"}, testCriterion("sam-a", 1))
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Final())

	r.MarkFailed("bad value")
	assert.Equal(t, outcome.Failed, r.Outcome)
	assert.Equal(t, "sam-a", r.FailSam)
	assert.Equal(t, "bad value", r.Reason)
	assert.True(t, r.EvalPerformed)

	// Finalized results are immutable.
	r.MarkPassed()
	r.MarkSkipped("later")
	r.MarkCancelled()
	assert.Equal(t, outcome.Failed, r.Outcome)
	assert.Equal(t, "bad value", r.Reason)
	assert.False(t, r.Cancelled)
}

func TestResultMarkSkippedRecordsOwnSam(t *testing.T) {
	r := NewResult(&Item{}, testCriterion("sam-a", 1))
	r.MarkSkipped("nothing to judge")
	assert.Equal(t, outcome.Skipped, r.Outcome)
	assert.Equal(t, "sam-a", r.SkipSam)
	assert.True(t, r.EvalPerformed)
}

func TestResultMarkErroredIsFailureWithCustomMessage(t *testing.T) {
	r := NewResult(&Item{}, testCriterion("sam-a", 1))
	r.MarkErrored("terminology server exploded")
	assert.Equal(t, outcome.Failed, r.Outcome)
	assert.Equal(t, "terminology server exploded", r.CustomErrorMessage)
	assert.Equal(t, "sam-a", r.FailSam)
	assert.True(t, r.EvalPerformed)
}

func TestResultInheritedMarksDoNotClaimEvaluation(t *testing.T) {
	skip := NewResult(&Item{}, testCriterion("sam-b", 2))
	skip.MarkSkipInherited("sam-a", "conditional not met")
	assert.Equal(t, outcome.Skipped, skip.Outcome)
	assert.Equal(t, "sam-a", skip.SkipSam)
	assert.False(t, skip.EvalPerformed)

	fail := NewResult(&Item{}, testCriterion("sam-b", 2))
	fail.MarkFailInherited("sam-a", "dependency failed")
	assert.Equal(t, outcome.Failed, fail.Outcome)
	assert.Equal(t, "sam-a", fail.FailSam)
	assert.False(t, fail.EvalPerformed)
}

func TestResultMarkCancelled(t *testing.T) {
	r := NewResult(&Item{}, testCriterion("sam-a", 1))
	r.MarkCancelled()
	assert.Equal(t, outcome.Skipped, r.Outcome)
	assert.Equal(t, CancelledReason, r.Reason)
	assert.True(t, r.Cancelled)
	assert.False(t, r.EvalPerformed)
}

func TestItemAddSlotOrdersBySamThenSequence(t *testing.T) {
	it := &Item{Key: "item"}
	require.NoError(t, it.AddSlot(NewResult(it, testCriterion("sam-b", 1))))
	require.NoError(t, it.AddSlot(NewResult(it, testCriterion("sam-a", 10))))
	require.NoError(t, it.AddSlot(NewResult(it, testCriterion("sam-a", 2))))

	var keys []string
	for _, s := range it.Slots() {
		keys = append(keys, s.Key())
	}
	assert.Equal(t, []string{"sam-a.2", "sam-a.10", "sam-b.1"}, keys)
}

func TestItemAddSlotSeparatesPrimaryFromTagged(t *testing.T) {
	it := &Item{Key: "item"}
	primary := NewResult(it, testCriterion("sam-a", 1))
	require.NoError(t, it.AddSlot(primary))

	extra := NewResult(it, testCriterion("sam-b", 2))
	extra.IsConditional = true
	require.NoError(t, it.AddSlot(extra))

	assert.Len(t, it.CriteriaResults, 1)
	assert.Len(t, it.FullResults, 2)
	_, inPrimary := it.CriteriaResults["sam-b.2"]
	assert.False(t, inPrimary)
	got, ok := it.Slot("sam-b.2")
	require.True(t, ok)
	assert.True(t, got.IsConditional)
}

func TestItemAddSlotRejectsDuplicates(t *testing.T) {
	it := &Item{Key: "item"}
	require.NoError(t, it.AddSlot(NewResult(it, testCriterion("sam-a", 1))))
	err := it.AddSlot(NewResult(it, testCriterion("sam-a", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate result slot")
}
