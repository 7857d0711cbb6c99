//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package scorecard defines the external result of an evaluation and the
// projection that fills it from aggregated statistics.
package scorecard

// ScoreSummary is one scoring roll-up. The denominator counts results
// that were processed, the numerator those that passed. Scores are
// integer percentages truncated toward zero; a zero denominator scores
// zero.
type ScoreSummary struct {
	// Denominator is the processed result count.
	Denominator int `json:"denominator"`
	// Numerator is the passed result count.
	Numerator int `json:"numerator"`
	// PIQIScore is trunc(numerator/denominator*100).
	PIQIScore int `json:"piqiScore"`
	// WeightedDenominator sums the weights of processed results.
	WeightedDenominator float64 `json:"weightedDenominator"`
	// WeightedNumerator sums the weights of passed results.
	WeightedNumerator float64 `json:"weightedNumerator"`
	// WeightedPIQIScore is the weighted integer percentage.
	WeightedPIQIScore int `json:"weightedPiqiScore"`
	// CriticalFailureCount counts scoring failures on critical criteria.
	CriticalFailureCount int `json:"criticalFailureCount"`
}

// DataClassResult is the scorecard row of one data class.
type DataClassResult struct {
	// DataClassName is the prettified class mnemonic.
	DataClassName string `json:"dataClassName"`
	// InstanceCount is the number of element instances the message
	// carried for this class.
	InstanceCount int `json:"instanceCount"`

	ScoreSummary
}

// InformationalEvaluation is the tally of one informational criterion.
type InformationalEvaluation struct {
	// EntityName is the prettified mnemonic of the evaluated entity.
	EntityName string `json:"entityName"`
	// EvaluationName is the display name of the assessment method.
	EvaluationName string `json:"evaluationName"`
	// InstanceCount is the total number of results, skipped included.
	InstanceCount int `json:"instanceCount"`
	// Denominator is the processed result count.
	Denominator int `json:"denominator"`
	// Numerator is the passed result count.
	Numerator int `json:"numerator"`
}

// InformationalClassResult groups informational tallies by data class.
type InformationalClassResult struct {
	// DataClassName is the prettified class mnemonic, empty for
	// evaluations on the message root.
	DataClassName string `json:"dataClassName"`
	// Evaluations are the tallies of this class, ordered by entity then
	// evaluation name.
	Evaluations []*InformationalEvaluation `json:"evaluations"`
}

// EvaluationError surfaces one assessment-method error. Errors are
// reported separately from ordinary failures so a broken collaborator
// is distinguishable from bad data.
type EvaluationError struct {
	// ItemKey locates the evaluated item in the message tree.
	ItemKey string `json:"itemKey"`
	// SamMnemonic names the assessment method that errored.
	SamMnemonic string `json:"samMnemonic"`
	// Message is the error text.
	Message string `json:"message"`
}

// Scorecard is the external projection of one evaluated message.
type Scorecard struct {
	// ID uniquely identifies this scorecard once stored.
	ID string `json:"id,omitempty"`
	// DataProviderID identifies the submitting provider.
	DataProviderID string `json:"dataProviderId,omitempty"`
	// DataSourceID identifies the originating source system.
	DataSourceID string `json:"dataSourceId,omitempty"`
	// MessageID identifies the evaluated message.
	MessageID string `json:"messageId,omitempty"`
	// EvaluationRubric is the display name of the rubric applied.
	EvaluationRubric string `json:"evaluationRubric,omitempty"`
	// ProcessDate is the evaluation time in RFC 3339 UTC.
	ProcessDate string `json:"processDate,omitempty"`
	// Partial reports that the evaluation was cancelled before every
	// slot ran; scores cover only the finalized portion.
	Partial bool `json:"partial,omitempty"`
	// MessageResults is the whole-message scoring roll-up.
	MessageResults *ScoreSummary `json:"messageResults"`
	// DataClassResults holds one row per data class of the entity
	// model, ordered by class name.
	DataClassResults []*DataClassResult `json:"dataClassResults,omitempty"`
	// InformationalResults holds non-scoring tallies grouped by class.
	InformationalResults []*InformationalClassResult `json:"informationalResults,omitempty"`
	// EvaluationErrors lists assessment-method errors observed during
	// the run.
	EvaluationErrors []*EvaluationError `json:"evaluationErrors,omitempty"`
}
