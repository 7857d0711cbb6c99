//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package refdata

import (
	"encoding/json"
	"fmt"
)

// ScoringEffect states whether a criterion moves the score or is
// recorded for information only.
type ScoringEffect int

const (
	// ScoringEffectScoring counts toward the weighted and unweighted score.
	ScoringEffectScoring ScoringEffect = iota
	// ScoringEffectInformational is tallied but never scored.
	ScoringEffectInformational
)

// String returns the string representation of the scoring effect.
func (s ScoringEffect) String() string {
	switch s {
	case ScoringEffectInformational:
		return "Informational"
	default:
		return "Scoring"
	}
}

// ParseScoringEffect converts a string into a ScoringEffect.
func ParseScoringEffect(v string) (ScoringEffect, error) {
	switch v {
	case "Scoring", "":
		return ScoringEffectScoring, nil
	case "Informational":
		return ScoringEffectInformational, nil
	default:
		return ScoringEffectScoring, fmt.Errorf("unknown scoring effect %q", v)
	}
}

// MarshalJSON encodes the scoring effect as its string form.
func (s ScoringEffect) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the scoring effect from its string form.
func (s *ScoringEffect) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseScoringEffect(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parameter is one named argument handed to a SAM by a criterion.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parameters is the ordered parameter list of a criterion.
type Parameters []Parameter

// Get returns the value of the named parameter and whether it exists.
func (ps Parameters) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// CriterionRef points at another criterion of the same rubric.
type CriterionRef struct {
	SamMnemonic string `json:"samMnemonic"`
	Sequence    int    `json:"sequence"`
}

// Key returns the slot key of the referenced criterion.
func (r CriterionRef) Key() string {
	return fmt.Sprintf("%s.%d", r.SamMnemonic, r.Sequence)
}

// Criterion binds one SAM to one entity of the model with scoring
// semantics and optional chaining to other criteria.
type Criterion struct {
	Sequence             int           `json:"sequence"`
	SamMnemonic          string        `json:"samMnemonic"`
	EntityMnemonic       string        `json:"entityMnemonic"`
	ScoringEffect        ScoringEffect `json:"scoringEffect"`
	ScoringWeight        float64       `json:"scoringWeight"`
	CriticalityIndicator bool          `json:"criticalityIndicator,omitempty"`
	SamNameOverride      string        `json:"samNameOverride,omitempty"`
	Parameters           Parameters    `json:"parameters,omitempty"`
	ConditionalOn        *CriterionRef `json:"conditionalOn,omitempty"` // runs only if the referenced criterion passed
	DependentOn          *CriterionRef `json:"dependentOn,omitempty"`   // inherits skip/fail from the referenced criterion
}

// Key returns the slot key of the criterion, unique within a rubric.
func (c *Criterion) Key() string {
	return fmt.Sprintf("%s.%d", c.SamMnemonic, c.Sequence)
}

// IsScoring reports whether the criterion affects the score.
func (c *Criterion) IsScoring() bool {
	return c.ScoringEffect == ScoringEffectScoring
}

// Rubric is an ordered set of evaluation criteria, keyed by mnemonic in
// the evaluation profile library.
type Rubric struct {
	Mnemonic           string       `json:"mnemonic"`
	Name               string       `json:"name,omitempty"`
	EvaluationCriteria []*Criterion `json:"evaluationCriteria"`
}

// DisplayName returns the rubric name, falling back to the mnemonic.
func (r *Rubric) DisplayName() string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.Mnemonic
}

// Criterion resolves a reference to the criterion it names, or nil.
func (r *Rubric) Criterion(ref CriterionRef) *Criterion {
	if r == nil {
		return nil
	}
	for _, c := range r.EvaluationCriteria {
		if c.SamMnemonic == ref.SamMnemonic && c.Sequence == ref.Sequence {
			return c
		}
	}
	return nil
}

// CriteriaFor returns the criteria targeting the given entity mnemonic,
// in rubric order.
func (r *Rubric) CriteriaFor(entityMnemonic string) []*Criterion {
	if r == nil {
		return nil
	}
	var out []*Criterion
	for _, c := range r.EvaluationCriteria {
		if c.EntityMnemonic == entityMnemonic {
			out = append(out, c)
		}
	}
	return out
}
