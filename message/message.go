//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package message parses inbound patient messages into the model-shaped
// tree the evaluation kernel walks.
package message

import (
	"encoding/json"
	"errors"
)

// ErrInvalidMessage reports a message that cannot be mapped onto its
// entity model. It is fatal to the evaluation request.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the inbound envelope. Body carries the patient record as
// raw JSON shaped by the entity model named by RootMnemonic.
type Message struct {
	MessageID      string          `json:"messageId"`
	DataProviderID string          `json:"dataProviderId,omitempty"`
	DataSourceID   string          `json:"dataSourceId,omitempty"`
	RootMnemonic   string          `json:"rootMnemonic"`
	RubricMnemonic string          `json:"rubricMnemonic,omitempty"` // overrides the index default when set
	Body           json.RawMessage `json:"body,omitempty"`
}

// Item is one node of the parsed message tree. Items exist only for data
// the message actually carries; absence is represented by the item not
// being there.
type Item struct {
	// Key is the dot-joined mnemonic path from the root. Element
	// instances append their 1-based sequence, so an attribute of the
	// second lab result reads Patient.LabResults.LabResult.2.ResultValue.
	Key string
	// Mnemonic of the model entity this item instantiates.
	Mnemonic string
	// Parent item, nil for the root.
	Parent *Item
	// Children maps child mnemonic to child item for attribute and class
	// children.
	Children map[string]*Item
	// Instances holds the ordered element instances of a class item.
	Instances []*Item
	// ElementSequence is the 1-based position of an element instance
	// within its class, zero elsewhere.
	ElementSequence int
	// MessageText is the literal JSON sub-document for this node.
	MessageText string
}

// Child returns the direct child with the given mnemonic.
func (i *Item) Child(mnemonic string) (*Item, bool) {
	if i == nil {
		return nil, false
	}
	c, ok := i.Children[mnemonic]
	return c, ok
}

// Text returns the item's raw JSON text, empty for nil items. Useful at
// call sites that hold a possibly-absent item.
func (i *Item) Text() string {
	if i == nil {
		return ""
	}
	return i.MessageText
}

// Tree is the parsed message, indexed by item key. It lives for one
// evaluation and is read-only after BuildTree returns.
type Tree struct {
	root  *Item
	byKey map[string]*Item
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
