//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package evaltree

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
)

// Build zips the entity model with the parsed message. Class items are
// created for every class of the model whether or not the message
// populated them; element items exist only where the message provides
// instances; attribute items are created unconditionally so absence can
// be assessed.
func Build(index *refdata.Index, msgTree *message.Tree) (*Tree, error) {
	if index == nil {
		return nil, fmt.Errorf("reference index is nil")
	}
	if msgTree == nil || msgTree.Root() == nil {
		return nil, fmt.Errorf("message tree is nil")
	}
	rootEntity, ok := index.RootEntity(msgTree.Root().Mnemonic)
	if !ok {
		return nil, fmt.Errorf("%w: root mnemonic %s does not name a model",
			message.ErrInvalidMessage, msgTree.Root().Mnemonic)
	}

	t := &Tree{byKey: make(map[string]*Item)}
	t.root = &Item{
		Key:          rootEntity.Mnemonic,
		Entity:       rootEntity,
		MessageItem:  msgTree.Root(),
		ItemType:     refdata.EntityTypeRoot,
		RootMnemonic: rootEntity.Mnemonic,
	}
	if err := t.register(t.root); err != nil {
		return nil, err
	}
	if err := t.buildUnder(t.root, rootEntity, msgTree.Root()); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) register(it *Item) error {
	if _, dup := t.byKey[it.Key]; dup {
		return fmt.Errorf("duplicate evaluation item key %s", it.Key)
	}
	t.byKey[it.Key] = it
	return nil
}

// buildUnder materializes the children of one entity beneath the given
// item: attributes ordered by name first, then classes ordered by name.
func (t *Tree) buildUnder(parent *Item, entity *refdata.Entity, msgItem *message.Item) error {
	for _, attr := range sortedByName(entity.ChildrenOfType(refdata.EntityTypeAttribute)) {
		child, _ := msgItem.Child(attr.Mnemonic)
		it := &Item{
			Key:             parent.Key + "." + attr.Mnemonic,
			Entity:          attr,
			MessageItem:     child,
			Parent:          parent,
			ItemType:        refdata.EntityTypeAttribute,
			RootMnemonic:    parent.RootMnemonic,
			ClassMnemonic:   parent.ClassMnemonic,
			ElementMnemonic: parent.ElementMnemonic,
			ElementSequence: parent.ElementSequence,
		}
		if err := t.register(it); err != nil {
			return err
		}
		parent.Children = append(parent.Children, it)
	}
	for _, class := range sortedByName(entity.ChildrenOfType(refdata.EntityTypeClass)) {
		if err := t.buildClass(parent, class, msgItem); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) buildClass(parent *Item, class *refdata.Entity, msgItem *message.Item) error {
	template := class.ElementTemplate()
	if template == nil {
		return fmt.Errorf("class %s has no element template", class.Mnemonic)
	}
	classMsg, _ := msgItem.Child(class.Mnemonic)
	classItem := &Item{
		Key:           parent.Key + "." + class.Mnemonic,
		Entity:        class,
		MessageItem:   classMsg,
		Parent:        parent,
		ItemType:      refdata.EntityTypeClass,
		RootMnemonic:  parent.RootMnemonic,
		ClassMnemonic: class.Mnemonic,
	}
	if err := t.register(classItem); err != nil {
		return err
	}
	parent.Children = append(parent.Children, classItem)
	t.classes = append(t.classes, classItem)

	if classMsg == nil {
		return nil
	}
	for _, inst := range classMsg.Instances {
		elem := &Item{
			Key:             classItem.Key + "." + template.Mnemonic + "." + strconv.Itoa(inst.ElementSequence),
			Entity:          template,
			MessageItem:     inst,
			Parent:          classItem,
			ItemType:        refdata.EntityTypeElement,
			RootMnemonic:    classItem.RootMnemonic,
			ClassMnemonic:   class.Mnemonic,
			ElementMnemonic: template.Mnemonic,
			ElementSequence: inst.ElementSequence,
		}
		if err := t.register(elem); err != nil {
			return err
		}
		classItem.Children = append(classItem.Children, elem)
		if err := t.buildUnder(elem, template, inst); err != nil {
			return err
		}
	}
	return nil
}

func sortedByName(entities []*refdata.Entity) []*refdata.Entity {
	out := make([]*refdata.Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Mnemonic < out[j].Mnemonic
	})
	return out
}
