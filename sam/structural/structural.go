//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package structural provides the SAMs that judge message structure:
// attribute population and element cleanliness. They need no external
// collaborators and are pre-registered by the registry.
package structural

import (
	"context"
	"fmt"
	"strings"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
)

// Mnemonics of the structural SAMs.
const (
	MnemonicAttributePopulated = "attribute-populated"
	MnemonicElementIsClean     = "element-is-clean"
)

// attributePopulated checks that an attribute carries a usable value.
type attributePopulated struct {
}

// NewAttributePopulated creates the attribute population SAM.
func NewAttributePopulated() sam.SAM {
	return &attributePopulated{}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *attributePopulated) Mnemonic() string {
	return MnemonicAttributePopulated
}

// Description returns a description of what this SAM does.
func (s *attributePopulated) Description() string {
	return "Checks that the attribute is present and carries a non-empty value"
}

// Evaluate fails for absent attributes and for values that are empty
// after trimming, the JSON null literal, or the empty string literal.
func (s *attributePopulated) Evaluate(_ context.Context, item *evaltree.Item, _ refdata.Parameters) (*sam.Response, error) {
	if item == nil {
		return sam.Errorf("no item to evaluate"), nil
	}
	if !isPopulated(item.Text()) {
		return sam.Fail("attribute is not populated"), nil
	}
	return sam.Succeed(), nil
}

func isPopulated(text string) bool {
	trimmed := strings.TrimSpace(text)
	switch trimmed {
	case "", "null", `""`:
		return false
	}
	return true
}

// elementIsClean passes when none of the item's child criteria failed.
type elementIsClean struct {
}

// NewElementIsClean creates the element cleanliness SAM.
func NewElementIsClean() sam.SAM {
	return &elementIsClean{}
}

// Mnemonic returns the mnemonic of this SAM.
func (s *elementIsClean) Mnemonic() string {
	return MnemonicElementIsClean
}

// Description returns a description of what this SAM does.
func (s *elementIsClean) Description() string {
	return "Checks that no criterion failed on any child of the item"
}

// Evaluate sums failures across the children's primary result slots.
// Post-order scheduling guarantees the children are finalized first.
func (s *elementIsClean) Evaluate(_ context.Context, item *evaltree.Item, _ refdata.Parameters) (*sam.Response, error) {
	if item == nil {
		return sam.Errorf("no item to evaluate"), nil
	}
	failures := 0
	for _, child := range item.Children {
		for _, r := range child.CriteriaResults {
			if r.Failed() {
				failures++
			}
		}
	}
	if failures > 0 {
		return sam.Fail(fmt.Sprintf("%d child criteria failed", failures)), nil
	}
	return sam.Succeed(), nil
}
