//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package message

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/piqi-framework/piqi-go/refdata"
)

// BuildTree maps the message body onto the entity model named by the
// envelope's root mnemonic. Fields the model does not know are ignored;
// model entities the message does not populate produce no items.
func BuildTree(msg *Message, index *refdata.Index) (*Tree, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: reference index is nil", ErrInvalidMessage)
	}
	if msg.RootMnemonic == "" {
		return nil, fmt.Errorf("%w: root mnemonic is empty", ErrInvalidMessage)
	}
	root, ok := index.RootEntity(msg.RootMnemonic)
	if !ok {
		return nil, fmt.Errorf("%w: root mnemonic %s does not name a model", ErrInvalidMessage, msg.RootMnemonic)
	}

	body := msg.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	fields, err := parseObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrInvalidMessage, err)
	}

	t := &Tree{byKey: make(map[string]*Item)}
	t.root = &Item{
		Key:         root.Mnemonic,
		Mnemonic:    root.Mnemonic,
		Children:    make(map[string]*Item),
		MessageText: string(body),
	}
	t.byKey[t.root.Key] = t.root
	if err := buildChildren(t, t.root, root, fields); err != nil {
		return nil, err
	}
	return t, nil
}

// buildChildren materializes the present children of one model entity
// under the given parent item.
func buildChildren(t *Tree, parent *Item, entity *refdata.Entity, fields map[string]json.RawMessage) error {
	for _, child := range entity.Children {
		raw, present := fields[child.FieldName]
		if !present {
			continue
		}
		switch child.EntityType {
		case refdata.EntityTypeAttribute:
			it := &Item{
				Key:         parent.Key + "." + child.Mnemonic,
				Mnemonic:    child.Mnemonic,
				Parent:      parent,
				MessageText: string(raw),
			}
			parent.Children[child.Mnemonic] = it
			t.byKey[it.Key] = it
		case refdata.EntityTypeClass:
			if err := buildClass(t, parent, child, raw); err != nil {
				return err
			}
		default:
			// Element templates never appear as direct message fields;
			// they are instantiated through their class.
			continue
		}
	}
	return nil
}

// buildClass materializes a class item and its ordered element
// instances. A non-array class field is treated as a single instance.
func buildClass(t *Tree, parent *Item, class *refdata.Entity, raw json.RawMessage) error {
	template := class.ElementTemplate()
	if template == nil {
		return fmt.Errorf("%w: class %s has no element template", ErrInvalidMessage, class.Mnemonic)
	}

	classItem := &Item{
		Key:         parent.Key + "." + class.Mnemonic,
		Mnemonic:    class.Mnemonic,
		Parent:      parent,
		Children:    make(map[string]*Item),
		MessageText: string(raw),
	}
	parent.Children[class.Mnemonic] = classItem
	t.byKey[classItem.Key] = classItem

	var instances []json.RawMessage
	if err := json.Unmarshal(raw, &instances); err != nil {
		instances = []json.RawMessage{raw}
	}
	for i, instRaw := range instances {
		seq := i + 1
		instFields, err := parseObject(instRaw)
		if err != nil {
			return fmt.Errorf("%w: class %s instance %d: %v", ErrInvalidMessage, class.Mnemonic, seq, err)
		}
		inst := &Item{
			Key:             classItem.Key + "." + template.Mnemonic + "." + strconv.Itoa(seq),
			Mnemonic:        template.Mnemonic,
			Parent:          classItem,
			Children:        make(map[string]*Item),
			ElementSequence: seq,
			MessageText:     string(instRaw),
		}
		classItem.Instances = append(classItem.Instances, inst)
		t.byKey[inst.Key] = inst
		if err := buildChildren(t, inst, template, instFields); err != nil {
			return err
		}
	}
	return nil
}

func parseObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
