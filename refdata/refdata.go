//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package refdata defines the reference data an evaluation runs against:
// entity models, code systems, value sets, SAM descriptors and
// evaluation rubrics, plus the frozen Index built from them.
package refdata

// CodeSystem describes a terminology code system by mnemonic and
// canonical URI. Lookups by either key resolve to the same value.
type CodeSystem struct {
	Mnemonic string `json:"mnemonic"`
	Name     string `json:"name"`
	URI      string `json:"uri"`
	OID      string `json:"oid,omitempty"`
}

// ValueSet describes a terminology value set by mnemonic and canonical
// URI. Expansion happens at the FHIR collaborator, not here.
type ValueSet struct {
	Mnemonic string `json:"mnemonic"`
	Name     string `json:"name"`
	URI      string `json:"uri"`
}

// SAMDescriptor names a scoring assessment method that rubric criteria
// may bind to. The descriptor supplies display names for the scorecard;
// the executable SAM is registered separately.
type SAMDescriptor struct {
	Mnemonic    string `json:"mnemonic"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DisplayName returns the descriptor name, falling back to the mnemonic.
func (d *SAMDescriptor) DisplayName() string {
	if d == nil {
		return ""
	}
	if d.Name != "" {
		return d.Name
	}
	return d.Mnemonic
}

// Bundle is the on-disk shape of a reference data document. A bundle may
// be split across several documents; Merge combines them before the
// Index is built.
type Bundle struct {
	ModelLibrary             []*Entity        `json:"modelLibrary,omitempty"`
	CodeSystemLibrary        []*CodeSystem    `json:"codeSystemLibrary,omitempty"`
	ValueSetLibrary          []*ValueSet      `json:"valueSetLibrary,omitempty"`
	SAMLibrary               []*SAMDescriptor `json:"samLibrary,omitempty"`
	EvaluationProfileLibrary []*Rubric        `json:"evaluationProfileLibrary,omitempty"`
}

// Merge appends the other bundle's libraries onto b.
func (b *Bundle) Merge(other *Bundle) {
	if other == nil {
		return
	}
	b.ModelLibrary = append(b.ModelLibrary, other.ModelLibrary...)
	b.CodeSystemLibrary = append(b.CodeSystemLibrary, other.CodeSystemLibrary...)
	b.ValueSetLibrary = append(b.ValueSetLibrary, other.ValueSetLibrary...)
	b.SAMLibrary = append(b.SAMLibrary, other.SAMLibrary...)
	b.EvaluationProfileLibrary = append(b.EvaluationProfileLibrary, other.EvaluationProfileLibrary...)
}
