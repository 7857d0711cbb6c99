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
	"github.com/google/uuid"

	"github.com/piqi-framework/piqi-go/evaluation/outcome"
	"github.com/piqi-framework/piqi-go/refdata"
)

// CancelledReason is recorded on slots finalized by cancellation.
const CancelledReason = "cancelled"

// Result is one criterion slot on one item. A result starts Pending and
// is finalized exactly once; the Mark methods are no-ops afterwards.
type Result struct {
	// ID uniquely identifies the result within the evaluation.
	ID string
	// Item the slot sits on.
	Item *Item
	// Criterion that produced the slot.
	Criterion *refdata.Criterion
	// IsConditional tags an extra slot materialized to satisfy a
	// conditionalOn reference. Such slots never aggregate.
	IsConditional bool
	// IsDependent tags an extra slot materialized to satisfy a
	// dependentOn reference. Such slots never aggregate.
	IsDependent bool
	// Outcome of the slot.
	Outcome outcome.Outcome
	// EvalPerformed is true when the SAM actually ran for this slot, and
	// false for inherited skips, inherited failures and cancellations.
	EvalPerformed bool
	// SkipSam names the SAM that caused a skip: the slot's own SAM for a
	// voluntary skip, the referenced SAM for conditional or dependent
	// skips.
	SkipSam string
	// FailSam names the SAM that caused a failure, in the same way.
	FailSam string
	// Reason carries the skip or fail reason text.
	Reason string
	// CustomErrorMessage carries the error text of a SAM that errored;
	// the slot still counts as a plain failure but is surfaced
	// separately on the scorecard.
	CustomErrorMessage string
	// Cancelled marks a slot skipped by cancellation; it is excluded
	// from aggregation and forces a partial scorecard.
	Cancelled bool
}

// NewResult creates a Pending result slot for the criterion on the item.
func NewResult(item *Item, criterion *refdata.Criterion) *Result {
	return &Result{
		ID:        uuid.NewString(),
		Item:      item,
		Criterion: criterion,
	}
}

// Key returns the slot key, samMnemonic.sequence.
func (r *Result) Key() string {
	return r.Criterion.Key()
}

// Sam returns the mnemonic of the slot's own SAM.
func (r *Result) Sam() string {
	return r.Criterion.SamMnemonic
}

// Final reports whether the result left Pending.
func (r *Result) Final() bool {
	return r.Outcome.Final()
}

// Passed reports whether the result passed.
func (r *Result) Passed() bool {
	return r.Outcome == outcome.Passed
}

// Failed reports whether the result failed.
func (r *Result) Failed() bool {
	return r.Outcome == outcome.Failed
}

// Skipped reports whether the result was skipped.
func (r *Result) Skipped() bool {
	return r.Outcome == outcome.Skipped
}

// IsScoring reports whether the slot belongs to the scoring track.
func (r *Result) IsScoring() bool {
	return r.Criterion.IsScoring()
}

// IsCritical reports whether a failure of this slot is critical.
func (r *Result) IsCritical() bool {
	return r.Criterion.CriticalityIndicator
}

// Weight returns the criterion's scoring weight.
func (r *Result) Weight() float64 {
	return r.Criterion.ScoringWeight
}

// MarkPassed finalizes the slot as passed by its own SAM.
func (r *Result) MarkPassed() {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Passed
	r.EvalPerformed = true
}

// MarkFailed finalizes the slot as failed by its own SAM.
func (r *Result) MarkFailed(reason string) {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Failed
	r.EvalPerformed = true
	r.FailSam = r.Sam()
	r.Reason = reason
}

// MarkSkipped finalizes the slot as skipped by its own SAM.
func (r *Result) MarkSkipped(reason string) {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Skipped
	r.EvalPerformed = true
	r.SkipSam = r.Sam()
	r.Reason = reason
}

// MarkErrored finalizes an errored SAM call as a failure carrying the
// error text for distinct surfacing.
func (r *Result) MarkErrored(errorMessage string) {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Failed
	r.EvalPerformed = true
	r.FailSam = r.Sam()
	r.Reason = errorMessage
	r.CustomErrorMessage = errorMessage
}

// MarkSkipInherited finalizes a skip caused by another SAM, either an
// unmet condition or a skipped dependency. The SAM never ran.
func (r *Result) MarkSkipInherited(skipSam, reason string) {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Skipped
	r.EvalPerformed = false
	r.SkipSam = skipSam
	r.Reason = reason
}

// MarkFailInherited finalizes a failure propagated from a failed
// dependency. The SAM never ran.
func (r *Result) MarkFailInherited(failSam, reason string) {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Failed
	r.EvalPerformed = false
	r.FailSam = failSam
	r.Reason = reason
}

// MarkCancelled finalizes a slot still pending when the evaluation was
// cancelled. Cancelled slots never aggregate.
func (r *Result) MarkCancelled() {
	if r.Final() {
		return
	}
	r.Outcome = outcome.Skipped
	r.EvalPerformed = false
	r.SkipSam = r.Sam()
	r.Reason = CancelledReason
	r.Cancelled = true
}
