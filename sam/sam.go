//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package sam defines the scoring assessment method contract. A SAM
// judges one evaluation item and reports success, failure, a voluntary
// skip, or an error; the scheduler maps the response onto the result
// slot.
package sam

import (
	"context"
	"fmt"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/refdata"
)

// State is the verdict of one SAM call.
type State int

const (
	// StateSucceeded means the check passed.
	StateSucceeded State = iota
	// StateFailed means the check failed.
	StateFailed
	// StateSkipped means the SAM declined to judge the item.
	StateSkipped
	// StateErrored means the SAM could not run to completion. The slot
	// is downgraded to a failure carrying the error message.
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateSkipped:
		return "SKIPPED"
	case StateErrored:
		return "ERRORED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Response is the outcome of one SAM call.
type Response struct {
	State        State  `json:"state"`
	FailReason   string `json:"failReason,omitempty"`
	SkipReason   string `json:"skipReason,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Succeed returns a succeeded response.
func Succeed() *Response {
	return &Response{State: StateSucceeded}
}

// Fail returns a failed response with the given reason.
func Fail(reason string) *Response {
	return &Response{State: StateFailed, FailReason: reason}
}

// Skip returns a skipped response with the given reason.
func Skip(reason string) *Response {
	return &Response{State: StateSkipped, SkipReason: reason}
}

// Errorf returns an errored response with a formatted message.
func Errorf(format string, args ...any) *Response {
	return &Response{State: StateErrored, ErrorMessage: fmt.Sprintf(format, args...)}
}

// SAM is one scoring assessment method. Implementations must be safe
// for concurrent use; the scheduler may dispatch independent slots in
// parallel.
type SAM interface {
	// Mnemonic returns the unique mnemonic rubric criteria bind to.
	Mnemonic() string
	// Description returns a short human readable description.
	Description() string
	// Evaluate judges the item with the criterion's parameters. A
	// returned error is equivalent to an errored response; both are
	// localized to the slot and never abort the evaluation.
	Evaluate(ctx context.Context, item *evaltree.Item, params refdata.Parameters) (*Response, error)
}
