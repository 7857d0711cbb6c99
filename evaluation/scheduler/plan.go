//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package scheduler expands a rubric over an evaluation tree and drives
// every result slot to a final outcome.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/refdata"
)

// ErrInvalidRubric reports a rubric whose conditional or dependent
// references are cyclic or name criteria the rubric does not contain.
// Such rubrics produce no scorecard at all, partial or otherwise.
var ErrInvalidRubric = errors.New("invalid rubric")

// BuildPlan validates the rubric's reference graph and expands the
// rubric over the tree: one primary slot per criterion on every item of
// the criterion's entity, plus tagged extra slots so conditional and
// dependent references always resolve on the same item.
func BuildPlan(tree *evaltree.Tree, rubric *refdata.Rubric) error {
	if tree == nil {
		return errors.New("tree is nil")
	}
	if rubric == nil {
		return errors.New("rubric is nil")
	}
	if err := validateReferences(rubric); err != nil {
		return err
	}
	for _, item := range tree.PostOrder() {
		if err := planItem(item, rubric); err != nil {
			return err
		}
	}
	return nil
}

// validateReferences walks the conditional and dependent edges of every
// criterion by depth-first search, rejecting cycles and references to
// criteria the rubric does not contain.
func validateReferences(rubric *refdata.Rubric) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(rubric.EvaluationCriteria))
	var visit func(c *refdata.Criterion) error
	visit = func(c *refdata.Criterion) error {
		key := c.Key()
		switch state[key] {
		case visiting:
			return fmt.Errorf("%w: conditional/dependent cycle through criterion %s", ErrInvalidRubric, key)
		case done:
			return nil
		}
		state[key] = visiting
		for _, ref := range []*refdata.CriterionRef{c.ConditionalOn, c.DependentOn} {
			if ref == nil {
				continue
			}
			target := rubric.Criterion(*ref)
			if target == nil {
				return fmt.Errorf("%w: criterion %s references unknown criterion %s",
					ErrInvalidRubric, key, ref.Key())
			}
			if err := visit(target); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}
	for _, c := range rubric.EvaluationCriteria {
		if err := visit(c); err != nil {
			return err
		}
	}
	return nil
}

func planItem(item *evaltree.Item, rubric *refdata.Rubric) error {
	if item.Entity == nil {
		return nil
	}
	primaries := rubric.CriteriaFor(item.Entity.Mnemonic)
	for _, c := range primaries {
		if err := item.AddSlot(evaltree.NewResult(item, c)); err != nil {
			return err
		}
	}
	for _, c := range primaries {
		if err := materializeReferences(item, rubric, c); err != nil {
			return err
		}
	}
	return nil
}

// materializeReferences adds tagged slots for criteria the given one
// refers to but which have no slot of their own on the item. References
// chain, so materialization follows them transitively. The reference
// graph is validated before planning, so every ref resolves.
func materializeReferences(item *evaltree.Item, rubric *refdata.Rubric, c *refdata.Criterion) error {
	refs := []struct {
		ref         *refdata.CriterionRef
		conditional bool
	}{
		{c.ConditionalOn, true},
		{c.DependentOn, false},
	}
	for _, r := range refs {
		if r.ref == nil {
			continue
		}
		target := rubric.Criterion(*r.ref)
		if _, ok := item.Slot(target.Key()); ok {
			continue
		}
		slot := evaltree.NewResult(item, target)
		if r.conditional {
			slot.IsConditional = true
		} else {
			slot.IsDependent = true
		}
		if err := item.AddSlot(slot); err != nil {
			return err
		}
		if err := materializeReferences(item, rubric, target); err != nil {
			return err
		}
	}
	return nil
}
