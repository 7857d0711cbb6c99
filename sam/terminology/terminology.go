//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package terminology provides the SAMs that judge coded values against
// reference terminology: code system recognition, code lookup and value
// set membership.
package terminology

import (
	"context"
	"fmt"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/fhir"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
)

// Mnemonics of the terminology SAMs.
const (
	MnemonicCodeSystemInterop  = "code-system-interop"
	MnemonicCodeLookupDisplay  = "code-lookup-display"
	MnemonicValueSetMembership = "valueset-membership"
)

// ParamValueSet names the criterion parameter carrying the value set
// mnemonic or canonical URL for the membership SAM.
const ParamValueSet = "valueSet"

// Service is the terminology capability the SAMs consume. *fhir.Client
// satisfies it.
type Service interface {
	// LookupCode validates a code against a code system.
	LookupCode(ctx context.Context, code, system string) (*fhir.LookupResult, error)
	// GetValueSet expands a value set by canonical URL.
	GetValueSet(ctx context.Context, valueSetURL string) (*fhir.ValueSetExpansion, error)
}

// parseConcept reads the item's coded value. The second return is a
// skip response when the item cannot be judged at all.
func parseConcept(item *evaltree.Item) (*fhir.CodeableConcept, *sam.Response) {
	if item == nil || !item.HasData() {
		return nil, sam.Skip("no value to assess")
	}
	concept, err := fhir.ParseCodeableConcept(item.Text())
	if err != nil {
		return nil, sam.Skip("value is not a coded concept")
	}
	if !concept.HasCodings() {
		return nil, sam.Skip("no codings to assess")
	}
	return concept, nil
}

// canonicalSystem maps a message-side system identifier, mnemonic or
// URI, onto the canonical URI when the index knows it.
func canonicalSystem(index *refdata.Index, system string) string {
	if index == nil {
		return system
	}
	if cs, ok := index.CodeSystem(system); ok {
		return cs.URI
	}
	return system
}

// codeSystemInterop checks that every coding uses a code system the
// reference data recognizes. It needs no server round trip.
type codeSystemInterop struct {
	index *refdata.Index
}

// NewCodeSystemInterop creates the code system interoperability SAM.
func NewCodeSystemInterop(index *refdata.Index) sam.SAM {
	return &codeSystemInterop{index: index}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *codeSystemInterop) Mnemonic() string {
	return MnemonicCodeSystemInterop
}

// Description returns a description of what this SAM does.
func (s *codeSystemInterop) Description() string {
	return "Checks that every coding uses a code system known to the reference data"
}

// Evaluate passes when all codings name recognized code systems, by
// mnemonic or canonical URI.
func (s *codeSystemInterop) Evaluate(_ context.Context, item *evaltree.Item, _ refdata.Parameters) (*sam.Response, error) {
	if s.index == nil {
		return sam.Errorf("reference index not configured"), nil
	}
	concept, skip := parseConcept(item)
	if skip != nil {
		return skip, nil
	}
	unrecognized := 0
	for _, coding := range concept.Coding {
		if coding.System == "" {
			unrecognized++
			continue
		}
		if _, ok := s.index.CodeSystem(coding.System); !ok {
			unrecognized++
		}
	}
	if unrecognized > 0 {
		return sam.Fail(fmt.Sprintf("%d of %d codings use unrecognized code systems",
			unrecognized, len(concept.Coding))), nil
	}
	return sam.Succeed(), nil
}

// codeLookupDisplay validates codings against the terminology server
// and confirms the code resolves to a display.
type codeLookupDisplay struct {
	index *refdata.Index
	svc   Service
}

// NewCodeLookupDisplay creates the code lookup SAM.
func NewCodeLookupDisplay(index *refdata.Index, svc Service) sam.SAM {
	return &codeLookupDisplay{index: index, svc: svc}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *codeLookupDisplay) Mnemonic() string {
	return MnemonicCodeLookupDisplay
}

// Description returns a description of what this SAM does.
func (s *codeLookupDisplay) Description() string {
	return "Checks that at least one coding resolves on the terminology server"
}

// Evaluate calls $lookup per coding. A 400 means the code is unknown
// and assessment continues with the next coding; transport failures and
// other statuses error the slot.
func (s *codeLookupDisplay) Evaluate(ctx context.Context, item *evaltree.Item, _ refdata.Parameters) (*sam.Response, error) {
	if s.svc == nil {
		return sam.Errorf("terminology service not configured"), nil
	}
	concept, skip := parseConcept(item)
	if skip != nil {
		return skip, nil
	}
	valid := 0
	for _, coding := range concept.Coding {
		if coding.Code == "" || coding.System == "" {
			continue
		}
		res, err := s.svc.LookupCode(ctx, coding.Code, canonicalSystem(s.index, coding.System))
		if err != nil {
			return nil, fmt.Errorf("lookup %s|%s: %w", coding.System, coding.Code, err)
		}
		if res.Found {
			valid++
		}
	}
	if valid == 0 {
		return sam.Fail("no coding recognized by the terminology server"), nil
	}
	return sam.Succeed(), nil
}

// valueSetMembership checks the coded value against a value set
// expansion. The value set comes from the criterion parameters.
type valueSetMembership struct {
	index *refdata.Index
	svc   Service
}

// NewValueSetMembership creates the value set membership SAM.
func NewValueSetMembership(index *refdata.Index, svc Service) sam.SAM {
	return &valueSetMembership{index: index, svc: svc}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *valueSetMembership) Mnemonic() string {
	return MnemonicValueSetMembership
}

// Description returns a description of what this SAM does.
func (s *valueSetMembership) Description() string {
	return "Checks that at least one coding is a member of the configured value set"
}

// Evaluate expands the configured value set and passes when any coding
// is a member.
func (s *valueSetMembership) Evaluate(ctx context.Context, item *evaltree.Item, params refdata.Parameters) (*sam.Response, error) {
	if s.svc == nil {
		return sam.Errorf("terminology service not configured"), nil
	}
	key, ok := params.Get(ParamValueSet)
	if !ok || key == "" {
		return sam.Errorf("%s parameter is required", ParamValueSet), nil
	}
	concept, skip := parseConcept(item)
	if skip != nil {
		return skip, nil
	}

	valueSetURL := key
	if s.index != nil {
		if vs, found := s.index.ValueSet(key); found {
			valueSetURL = vs.URI
		}
	}
	expansion, err := s.svc.GetValueSet(ctx, valueSetURL)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", valueSetURL, err)
	}
	for _, coding := range concept.Coding {
		if expansion.ContainsCoding(canonicalSystem(s.index, coding.System), coding.Code) {
			return sam.Succeed(), nil
		}
	}
	return sam.Fail(fmt.Sprintf("no coding is a member of value set %s", key)), nil
}
