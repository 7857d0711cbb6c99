//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package structural

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
)

func itemWithText(text string) *evaltree.Item {
	it := &evaltree.Item{Key: "k", ItemType: refdata.EntityTypeAttribute}
	if text != "" {
		it.MessageItem = &message.Item{Key: "k", MessageText: text}
	}
	return it
}

func TestAttributePopulated(t *testing.T) {
	s := NewAttributePopulated()
	assert.Equal(t, MnemonicAttributePopulated, s.Mnemonic())

	cases := []struct {
		name string
		text string
		want sam.State
	}{
		{"absent attribute", "", sam.StateFailed},
		{"null literal", "null", sam.StateFailed},
		{"empty string literal", `""`, sam.StateFailed},
		{"whitespace", "   ", sam.StateFailed},
		{"string value", `"13.2"`, sam.StateSucceeded},
		{"number value", "13.2", sam.StateSucceeded},
		{"object value", `{"code":"718-7"}`, sam.StateSucceeded},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, err := s.Evaluate(context.Background(), itemWithText(c.text), nil)
			require.NoError(t, err)
			assert.Equal(t, c.want, resp.State)
		})
	}
}

func TestAttributePopulatedNilItemErrors(t *testing.T) {
	resp, err := NewAttributePopulated().Evaluate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, sam.StateErrored, resp.State)
}

func TestElementIsCleanPassesWithoutFailures(t *testing.T) {
	elem := &evaltree.Item{Key: "e", ItemType: refdata.EntityTypeElement}
	child := &evaltree.Item{Key: "e.a", ItemType: refdata.EntityTypeAttribute}
	elem.Children = []*evaltree.Item{child}

	ok := evaltree.NewResult(child, &refdata.Criterion{Sequence: 1, SamMnemonic: "x", EntityMnemonic: "a"})
	require.NoError(t, child.AddSlot(ok))
	ok.MarkPassed()

	resp, err := NewElementIsClean().Evaluate(context.Background(), elem, nil)
	require.NoError(t, err)
	assert.Equal(t, sam.StateSucceeded, resp.State)
}

func TestElementIsCleanFailsWhenChildFailed(t *testing.T) {
	elem := &evaltree.Item{Key: "e", ItemType: refdata.EntityTypeElement}
	a := &evaltree.Item{Key: "e.a", ItemType: refdata.EntityTypeAttribute}
	b := &evaltree.Item{Key: "e.b", ItemType: refdata.EntityTypeAttribute}
	elem.Children = []*evaltree.Item{a, b}

	passed := evaltree.NewResult(a, &refdata.Criterion{Sequence: 1, SamMnemonic: "x", EntityMnemonic: "a"})
	require.NoError(t, a.AddSlot(passed))
	passed.MarkPassed()

	failed := evaltree.NewResult(b, &refdata.Criterion{Sequence: 2, SamMnemonic: "x", EntityMnemonic: "b"})
	require.NoError(t, b.AddSlot(failed))
	failed.MarkFailed("not populated")

	resp, err := NewElementIsClean().Evaluate(context.Background(), elem, nil)
	require.NoError(t, err)
	assert.Equal(t, sam.StateFailed, resp.State)
	assert.Contains(t, resp.FailReason, "1 child criteria failed")
}

func TestElementIsCleanIgnoresTaggedSlots(t *testing.T) {
	elem := &evaltree.Item{Key: "e", ItemType: refdata.EntityTypeElement}
	child := &evaltree.Item{Key: "e.a", ItemType: refdata.EntityTypeAttribute}
	elem.Children = []*evaltree.Item{child}

	// A failed conditional extra slot stays out of CriteriaResults and
	// must not count against cleanliness.
	extra := evaltree.NewResult(child, &refdata.Criterion{Sequence: 3, SamMnemonic: "y", EntityMnemonic: "a"})
	extra.IsConditional = true
	require.NoError(t, child.AddSlot(extra))
	extra.MarkFailed("tagged failure")

	resp, err := NewElementIsClean().Evaluate(context.Background(), elem, nil)
	require.NoError(t, err)
	assert.Equal(t, sam.StateSucceeded, resp.State)
}

func TestElementIsCleanPassesOnEmptyElement(t *testing.T) {
	resp, err := NewElementIsClean().Evaluate(context.Background(), &evaltree.Item{Key: "e"}, nil)
	require.NoError(t, err)
	assert.Equal(t, sam.StateSucceeded, resp.State)
}
