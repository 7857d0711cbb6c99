//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package plausibility provides the SAMs that judge observed values
// against clinical knowledge: lab result and lab device plausibility.
package plausibility

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/fhir"
	"github.com/piqi-framework/piqi-go/knowledge"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
)

// Mnemonics of the plausibility SAMs.
const (
	MnemonicLabResultPlausible = "lab-result-plausible"
	MnemonicLabDevicePlausible = "lab-device-plausible"
)

// Criterion parameter names. Each parameter value names an entity
// mnemonic of the rubric's model; the SAM resolves the mnemonic in the
// evaluated item's subtree first, then across the whole record, so a
// patient-level birth date is reachable from a lab element.
const (
	ParamTestCode     = "testCode"
	ParamResultValue  = "resultValue"
	ParamStamp        = "stamp"
	ParamDOB          = "dob"
	ParamRefRangeLow  = "refRangeLow"
	ParamRefRangeHigh = "refRangeHigh"
	ParamUnit         = "unit"
)

// Service is the clinical knowledge capability the SAMs consume.
// *knowledge.Client satisfies it.
type Service interface {
	// LabResult judges an observed lab result.
	LabResult(ctx context.Context, q knowledge.LabResultQuery) (knowledge.Plausibility, error)
	// LabDevice judges a lab result's device metadata.
	LabDevice(ctx context.Context, q knowledge.LabDeviceQuery) (knowledge.Plausibility, error)
}

// findInput resolves a criterion parameter onto a tree item. A missing
// parameter resolves to nil; so does a mnemonic absent from the tree.
func findInput(item *evaltree.Item, params refdata.Parameters, name string) *evaltree.Item {
	mnemonic, ok := params.Get(name)
	if !ok || mnemonic == "" {
		return nil
	}
	if found := item.FindByEntity(mnemonic); found != nil {
		return found
	}
	return item.Root().FindByEntity(mnemonic)
}

// scalarValue reads an item's plain value. JSON strings unquote;
// numbers and anything else pass through as written.
func scalarValue(it *evaltree.Item) string {
	if it == nil || !it.HasData() {
		return ""
	}
	raw := strings.TrimSpace(it.Text())
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return strings.TrimSpace(s)
	}
	return raw
}

// codeValue reads an item's code. Codeable concepts yield their first
// coding's code; plain scalars their own value.
func codeValue(it *evaltree.Item) string {
	if it == nil || !it.HasData() {
		return ""
	}
	if concept, err := fhir.ParseCodeableConcept(it.Text()); err == nil && concept.HasCodings() {
		return concept.Coding[0].Code
	}
	return scalarValue(it)
}

// verdictResponse maps a knowledge verdict onto a SAM response.
func verdictResponse(v knowledge.Plausibility, failReason string) (*sam.Response, error) {
	switch v {
	case knowledge.Plausible:
		return sam.Succeed(), nil
	case knowledge.Implausible:
		return sam.Fail(failReason), nil
	case knowledge.Unknown:
		return sam.Skip("no clinical knowledge for this observation"), nil
	default:
		return sam.Errorf("unexpected plausibility %q", v), nil
	}
}

// labResultPlausible checks an observed result value against clinical
// knowledge for the patient.
type labResultPlausible struct {
	svc Service
}

// NewLabResultPlausible creates the lab result plausibility SAM.
func NewLabResultPlausible(svc Service) sam.SAM {
	return &labResultPlausible{svc: svc}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *labResultPlausible) Mnemonic() string {
	return MnemonicLabResultPlausible
}

// Description returns a description of what this SAM does.
func (s *labResultPlausible) Description() string {
	return "Checks the observed result value against clinical knowledge for plausibility"
}

// Evaluate resolves the configured inputs from the record and asks the
// knowledge service. The test code and result value are required;
// without them the slot skips rather than fails.
func (s *labResultPlausible) Evaluate(ctx context.Context, item *evaltree.Item, params refdata.Parameters) (*sam.Response, error) {
	if s.svc == nil {
		return sam.Errorf("knowledge service not configured"), nil
	}
	if item == nil {
		return sam.Errorf("no item to assess"), nil
	}
	q := knowledge.LabResultQuery{
		DOB:         scalarValue(findInput(item, params, ParamDOB)),
		TestCode:    codeValue(findInput(item, params, ParamTestCode)),
		ResultValue: scalarValue(findInput(item, params, ParamResultValue)),
		Stamp:       scalarValue(findInput(item, params, ParamStamp)),
	}
	if q.TestCode == "" || q.ResultValue == "" {
		return sam.Skip("test code and result value are required"), nil
	}
	verdict, err := s.svc.LabResult(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lab result plausibility: %w", err)
	}
	return verdictResponse(verdict, "result value is clinically implausible")
}

// labDevicePlausible checks reference range and unit metadata against
// clinical knowledge for the performed test.
type labDevicePlausible struct {
	svc Service
}

// NewLabDevicePlausible creates the lab device plausibility SAM.
func NewLabDevicePlausible(svc Service) sam.SAM {
	return &labDevicePlausible{svc: svc}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *labDevicePlausible) Mnemonic() string {
	return MnemonicLabDevicePlausible
}

// Description returns a description of what this SAM does.
func (s *labDevicePlausible) Description() string {
	return "Checks reference range and unit metadata against clinical knowledge for plausibility"
}

// Evaluate resolves the configured inputs from the record and asks the
// knowledge service. The test code and unit are required; without them
// the slot skips rather than fails.
func (s *labDevicePlausible) Evaluate(ctx context.Context, item *evaltree.Item, params refdata.Parameters) (*sam.Response, error) {
	if s.svc == nil {
		return sam.Errorf("knowledge service not configured"), nil
	}
	if item == nil {
		return sam.Errorf("no item to assess"), nil
	}
	q := knowledge.LabDeviceQuery{
		TestCode:     codeValue(findInput(item, params, ParamTestCode)),
		RefRangeLow:  scalarValue(findInput(item, params, ParamRefRangeLow)),
		RefRangeHigh: scalarValue(findInput(item, params, ParamRefRangeHigh)),
		Unit:         scalarValue(findInput(item, params, ParamUnit)),
		Stamp:        scalarValue(findInput(item, params, ParamStamp)),
	}
	if q.TestCode == "" || q.Unit == "" {
		return sam.Skip("test code and unit are required"), nil
	}
	verdict, err := s.svc.LabDevice(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lab device plausibility: %w", err)
	}
	return verdictResponse(verdict, "device metadata is clinically implausible")
}
