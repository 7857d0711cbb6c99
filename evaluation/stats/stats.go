//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package stats aggregates finalized evaluation results into the
// counters and dictionaries the scorecard is projected from.
package stats

import (
	"fmt"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
)

// Counters is one tally track. The invariants processed = passed +
// failed and total = processed + skipped hold at every point.
type Counters struct {
	Total     int
	Processed int
	Passed    int
	Failed    int
	Skipped   int
}

// observe tallies one final outcome.
func (c *Counters) observe(r *evaltree.Result) {
	c.Total++
	if r.Skipped() {
		c.Skipped++
		return
	}
	c.Processed++
	if r.Passed() {
		c.Passed++
	} else {
		c.Failed++
	}
}

// WeightedCounters tallies scoring weights, partitioned by state the
// same way the unweighted counters are: a weight lands in exactly one
// of skipped or processed, never both.
type WeightedCounters struct {
	Total     float64
	Processed float64
	Passed    float64
	Failed    float64
	Skipped   float64
}

func (w *WeightedCounters) observe(r *evaltree.Result, weight float64) {
	w.Total += weight
	if r.Skipped() {
		w.Skipped += weight
		return
	}
	w.Processed += weight
	if r.Passed() {
		w.Passed += weight
	} else {
		w.Failed += weight
	}
}

// ClassResult tallies one data class, keyed by class mnemonic. Classes
// are seeded from the evaluation tree so a class without results still
// projects a scorecard row.
type ClassResult struct {
	ClassMnemonic        string
	InstanceCount        int
	Scoring              Counters
	Informational        Counters
	Weighted             WeightedCounters
	CriticalFailureCount int
}

// ElementResult tallies one element instance for the scoring audit,
// keyed "{classMnemonic}.{elementSequence}".
type ElementResult struct {
	ClassMnemonic           string
	ElementSequence         int
	Scoring                 Counters
	Informational           Counters
	SAMCriticalFailureCount int
}

// FailureResult tallies one failure cause, keyed
// "{entity}|{sam}|{failSam}". FailSam differs from SamMnemonic when the
// failure was inherited from a dependency.
type FailureResult struct {
	EntityMnemonic string
	SamMnemonic    string
	FailSam        string
	FailureCount   int
}

// SkipResult tallies one skip cause, keyed "{entity}|{sam}|{skipSam}".
type SkipResult struct {
	EntityMnemonic string
	SamMnemonic    string
	SkipSam        string
	SkipCount      int
}

// InformationalResult tallies one informational criterion, keyed
// "{entity}|{sam}". ClassMnemonic carries the enclosing class for
// scorecard grouping; SamName carries the criterion's name override.
type InformationalResult struct {
	EntityMnemonic string
	SamMnemonic    string
	SamName        string
	ClassMnemonic  string
	Counts         Counters
}

// EvaluationError is one SAM error captured for the scorecard's error
// surface. The slot it came from still counts as a plain failure.
type EvaluationError struct {
	ItemKey     string
	SamMnemonic string
	Message     string
}

// StatResponse is the aggregate state of one evaluation and the sole
// input of the scorecard numbers.
type StatResponse struct {
	ScoringCounts        Counters
	InformationalCounts  Counters
	WeightedCounts       WeightedCounters
	CriticalFailureCount int

	Classes          map[string]*ClassResult
	Elements         map[string]*ElementResult
	Failures         map[string]*FailureResult
	CriticalFailures map[string]*FailureResult
	Informational    map[string]*InformationalResult
	Skips            map[string]*SkipResult
	Errors           []*EvaluationError
}

// ElementKey composes the element dictionary key.
func ElementKey(classMnemonic string, elementSequence int) string {
	return fmt.Sprintf("%s.%d", classMnemonic, elementSequence)
}

// FailureKey composes the failure dictionary key.
func FailureKey(entity, sam, failSam string) string {
	return fmt.Sprintf("%s|%s|%s", entity, sam, failSam)
}

// SkipKey composes the skip dictionary key.
func SkipKey(entity, sam, skipSam string) string {
	return fmt.Sprintf("%s|%s|%s", entity, sam, skipSam)
}

// InformationalKey composes the informational dictionary key.
func InformationalKey(entity, sam string) string {
	return fmt.Sprintf("%s|%s", entity, sam)
}
