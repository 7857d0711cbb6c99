//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package stats

import (
	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
)

// Aggregator folds finalized results into a StatResponse. It is not
// safe for concurrent use; the engine feeds it from a single goroutine
// in deterministic slot order, whatever order the scheduler dispatched
// in.
type Aggregator struct {
	resp *StatResponse
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		resp: &StatResponse{
			Classes:          make(map[string]*ClassResult),
			Elements:         make(map[string]*ElementResult),
			Failures:         make(map[string]*FailureResult),
			CriticalFailures: make(map[string]*FailureResult),
			Informational:    make(map[string]*InformationalResult),
			Skips:            make(map[string]*SkipResult),
		},
	}
}

// SeedClass registers a data class before any results arrive, so
// classes without element instances still appear on the scorecard.
func (a *Aggregator) SeedClass(classMnemonic string, instanceCount int) {
	entry := a.classEntry(classMnemonic)
	entry.InstanceCount = instanceCount
}

// Response returns the aggregate.
func (a *Aggregator) Response() *StatResponse {
	return a.resp
}

// Add folds one finalized result. Pending results are ignored.
// Conditional, dependent and cancelled results never move a counter or
// dictionary; their SAM errors are still captured for the scorecard's
// error surface.
func (a *Aggregator) Add(r *evaltree.Result) {
	if r == nil || !r.Final() {
		return
	}
	if r.CustomErrorMessage != "" {
		a.resp.Errors = append(a.resp.Errors, &EvaluationError{
			ItemKey:     r.Item.Key,
			SamMnemonic: r.Sam(),
			Message:     r.CustomErrorMessage,
		})
	}
	if r.IsConditional || r.IsDependent || r.Cancelled {
		return
	}

	scoring := r.IsScoring()
	if scoring {
		a.resp.ScoringCounts.observe(r)
		a.resp.WeightedCounts.observe(r, r.Weight())
	} else {
		a.resp.InformationalCounts.observe(r)
		a.informationalEntry(r).Counts.observe(r)
	}

	var class *ClassResult
	if r.Item.ClassMnemonic != "" {
		class = a.classEntry(r.Item.ClassMnemonic)
		if scoring {
			class.Scoring.observe(r)
			class.Weighted.observe(r, r.Weight())
		} else {
			class.Informational.observe(r)
		}
	}
	var element *ElementResult
	if r.Item.ClassMnemonic != "" && r.Item.ElementSequence > 0 {
		element = a.elementEntry(r)
		if scoring {
			element.Scoring.observe(r)
		} else {
			element.Informational.observe(r)
		}
	}

	switch {
	case r.Skipped():
		a.skipEntry(r).SkipCount++
	case r.Failed():
		a.failureEntry(a.resp.Failures, r).FailureCount++
		if scoring && r.IsCritical() {
			a.resp.CriticalFailureCount++
			a.failureEntry(a.resp.CriticalFailures, r).FailureCount++
			if class != nil {
				class.CriticalFailureCount++
			}
			if element != nil {
				element.SAMCriticalFailureCount++
			}
		}
	}
}

func (a *Aggregator) classEntry(classMnemonic string) *ClassResult {
	entry, ok := a.resp.Classes[classMnemonic]
	if !ok {
		entry = &ClassResult{ClassMnemonic: classMnemonic}
		a.resp.Classes[classMnemonic] = entry
	}
	return entry
}

func (a *Aggregator) elementEntry(r *evaltree.Result) *ElementResult {
	key := ElementKey(r.Item.ClassMnemonic, r.Item.ElementSequence)
	entry, ok := a.resp.Elements[key]
	if !ok {
		entry = &ElementResult{
			ClassMnemonic:   r.Item.ClassMnemonic,
			ElementSequence: r.Item.ElementSequence,
		}
		a.resp.Elements[key] = entry
	}
	return entry
}

func (a *Aggregator) failureEntry(dict map[string]*FailureResult, r *evaltree.Result) *FailureResult {
	key := FailureKey(r.Criterion.EntityMnemonic, r.Sam(), r.FailSam)
	entry, ok := dict[key]
	if !ok {
		entry = &FailureResult{
			EntityMnemonic: r.Criterion.EntityMnemonic,
			SamMnemonic:    r.Sam(),
			FailSam:        r.FailSam,
		}
		dict[key] = entry
	}
	return entry
}

func (a *Aggregator) skipEntry(r *evaltree.Result) *SkipResult {
	key := SkipKey(r.Criterion.EntityMnemonic, r.Sam(), r.SkipSam)
	entry, ok := a.resp.Skips[key]
	if !ok {
		entry = &SkipResult{
			EntityMnemonic: r.Criterion.EntityMnemonic,
			SamMnemonic:    r.Sam(),
			SkipSam:        r.SkipSam,
		}
		a.resp.Skips[key] = entry
	}
	return entry
}

func (a *Aggregator) informationalEntry(r *evaltree.Result) *InformationalResult {
	key := InformationalKey(r.Criterion.EntityMnemonic, r.Sam())
	entry, ok := a.resp.Informational[key]
	if !ok {
		entry = &InformationalResult{
			EntityMnemonic: r.Criterion.EntityMnemonic,
			SamMnemonic:    r.Sam(),
			SamName:        r.Criterion.SamNameOverride,
			ClassMnemonic:  r.Item.ClassMnemonic,
		}
		a.resp.Informational[key] = entry
	}
	return entry
}
