//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package outcome defines the lifecycle states of one evaluation result.
package outcome

// Outcome is the state of a single criterion result. Results start
// Pending and move exactly once to one of the final states.
type Outcome int

const (
	// Pending means the slot has not been finalized yet.
	Pending Outcome = iota
	// Passed means the SAM succeeded.
	Passed
	// Failed means the SAM failed, or a dependency failed, or the SAM
	// errored and was downgraded to a failure.
	Failed
	// Skipped means the SAM declined to judge, a condition was not met,
	// a dependency was skipped, or the run was cancelled.
	Skipped
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case Skipped:
		return "Skipped"
	default:
		return "Pending"
	}
}

// Final reports whether the outcome left Pending.
func (o Outcome) Final() bool {
	return o != Pending
}

// Processed reports whether the outcome counts as processed work, i.e.
// it passed or failed rather than being skipped.
func (o Outcome) Processed() bool {
	return o == Passed || o == Failed
}
