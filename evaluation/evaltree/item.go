//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package evaltree builds the evaluation tree for one message: the zip
// of the entity model with the parsed message, carrying the result
// slots the scheduler finalizes.
package evaltree

import (
	"fmt"
	"sort"

	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
)

// Item is one evaluation target: an entity of the model paired with the
// message data backing it, if any. Attribute items exist even when the
// message carries no value so absence itself can be assessed.
type Item struct {
	// Key is unique within one evaluation and mirrors the message item
	// key shape, covering entities the message left unpopulated.
	Key string
	// Entity is the model node this item instantiates.
	Entity *refdata.Entity
	// MessageItem is the backing message data, nil when absent.
	MessageItem *message.Item
	// Parent item, nil at the root. SAMs navigate through it to reach
	// values living elsewhere in the record.
	Parent *Item
	// ItemType mirrors the entity type.
	ItemType refdata.EntityType
	// RootMnemonic names the model root of this evaluation.
	RootMnemonic string
	// ClassMnemonic names the enclosing class, empty above class level.
	ClassMnemonic string
	// ElementMnemonic names the enclosing element template, empty above
	// element level.
	ElementMnemonic string
	// ElementSequence is the 1-based element instance position, zero
	// above element level.
	ElementSequence int
	// Children in traversal order: attributes before classes at the
	// root, elements by sequence under a class, attributes by name under
	// an element.
	Children []*Item
	// CriteriaResults holds the primary result slots, one per rubric
	// criterion targeting this item's entity, keyed samMnemonic.sequence.
	CriteriaResults map[string]*Result
	// FullResults holds CriteriaResults plus the extra slots
	// materialized for conditional and dependent references.
	FullResults map[string]*Result

	slots []*Result
}

// AddSlot registers a result slot on the item. Primary slots land in
// both CriteriaResults and FullResults; tagged conditional or dependent
// extras land in FullResults only. Duplicate keys are rejected.
func (it *Item) AddSlot(r *Result) error {
	key := r.Key()
	if _, dup := it.FullResults[key]; dup {
		return fmt.Errorf("duplicate result slot %s on item %s", key, it.Key)
	}
	if it.FullResults == nil {
		it.FullResults = make(map[string]*Result)
	}
	if it.CriteriaResults == nil {
		it.CriteriaResults = make(map[string]*Result)
	}
	it.FullResults[key] = r
	if !r.IsConditional && !r.IsDependent {
		it.CriteriaResults[key] = r
	}
	it.slots = append(it.slots, r)
	sort.SliceStable(it.slots, func(i, j int) bool {
		a, b := it.slots[i].Criterion, it.slots[j].Criterion
		if a.SamMnemonic != b.SamMnemonic {
			return a.SamMnemonic < b.SamMnemonic
		}
		return a.Sequence < b.Sequence
	})
	return nil
}

// Slots returns all result slots ascending by (samMnemonic, sequence).
func (it *Item) Slots() []*Result {
	return it.slots
}

// Slot returns the result slot with the given key from FullResults.
func (it *Item) Slot(key string) (*Result, bool) {
	r, ok := it.FullResults[key]
	return r, ok
}

// Text returns the raw message text backing the item, empty when absent.
func (it *Item) Text() string {
	return it.MessageItem.Text()
}

// HasData reports whether the message carries data for this item.
func (it *Item) HasData() bool {
	return it.MessageItem != nil
}

// Root climbs to the root item.
func (it *Item) Root() *Item {
	cur := it
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// FindByEntity returns the first item in this subtree instantiating the
// given entity mnemonic, in pre-order, or nil.
func (it *Item) FindByEntity(mnemonic string) *Item {
	if it == nil {
		return nil
	}
	if it.Entity != nil && it.Entity.Mnemonic == mnemonic {
		return it
	}
	for _, c := range it.Children {
		if found := c.FindByEntity(mnemonic); found != nil {
			return found
		}
	}
	return nil
}

// Tree is the evaluation tree for one message.
type Tree struct {
	root    *Item
	byKey   map[string]*Item
	classes []*Item
}

// Root returns the root item.
func (t *Tree) Root() *Item {
	return t.root
}

// ByKey returns the item with the given key.
func (t *Tree) ByKey(key string) (*Item, bool) {
	it, ok := t.byKey[key]
	return it, ok
}

// Len returns the number of items in the tree.
func (t *Tree) Len() int {
	return len(t.byKey)
}

// Classes returns all class items in build order.
func (t *Tree) Classes() []*Item {
	return t.classes
}

// PostOrder returns the items children first, so attributes come before
// their element, elements before their class, classes before the root.
func (t *Tree) PostOrder() []*Item {
	out := make([]*Item, 0, len(t.byKey))
	var walk func(it *Item)
	walk = func(it *Item) {
		for _, c := range it.Children {
			walk(c)
		}
		out = append(out, it)
	}
	walk(t.root)
	return out
}

// FirstByEntity returns the first item instantiating the given entity
// mnemonic in pre-order, or nil. Plausibility SAMs use this to resolve
// values living elsewhere in the record, like the patient birth date.
func (t *Tree) FirstByEntity(mnemonic string) *Item {
	return t.root.FindByEntity(mnemonic)
}
