//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package refdata

import (
	"encoding/json"
	"fmt"
)

// EntityType identifies the structural role of an entity in a model.
type EntityType int

const (
	// EntityTypeUnknown is the zero value and never valid in a loaded model.
	EntityTypeUnknown EntityType = iota
	// EntityTypeRoot is the top of a model, e.g. a patient record.
	EntityTypeRoot
	// EntityTypeClass groups repeating elements, e.g. lab results.
	EntityTypeClass
	// EntityTypeElement is the template for one instance of a class.
	EntityTypeElement
	// EntityTypeAttribute is a leaf value of an element or root.
	EntityTypeAttribute
)

// String returns the string representation of the entity type.
func (t EntityType) String() string {
	switch t {
	case EntityTypeRoot:
		return "Root"
	case EntityTypeClass:
		return "Class"
	case EntityTypeElement:
		return "Element"
	case EntityTypeAttribute:
		return "Attribute"
	default:
		return "Unknown"
	}
}

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "Root":
		return EntityTypeRoot, nil
	case "Class":
		return EntityTypeClass, nil
	case "Element":
		return EntityTypeElement, nil
	case "Attribute":
		return EntityTypeAttribute, nil
	default:
		return EntityTypeUnknown, fmt.Errorf("unknown entity type %q", s)
	}
}

// MarshalJSON encodes the entity type as its string form.
func (t EntityType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the entity type from its string form.
func (t *EntityType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEntityType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Entity is one node of a declarative entity model. Models form a tree:
// a root holds classes and root-level attributes, a class holds exactly
// one element template, and an element template holds attributes.
type Entity struct {
	Mnemonic   string     `json:"mnemonic"`            // unique key within the model library
	Name       string     `json:"name"`                // human readable name
	FieldName  string     `json:"fieldName,omitempty"` // JSON field carrying this entity in a message
	EntityType EntityType `json:"entityType"`
	Children   []*Entity  `json:"children,omitempty"`
}

// ElementTemplate returns the element template of a class entity, or nil
// when the entity is not a class or carries none.
func (e *Entity) ElementTemplate() *Entity {
	if e == nil || e.EntityType != EntityTypeClass {
		return nil
	}
	for _, c := range e.Children {
		if c.EntityType == EntityTypeElement {
			return c
		}
	}
	return nil
}

// ChildrenOfType returns the direct children with the given type, in
// declaration order.
func (e *Entity) ChildrenOfType(t EntityType) []*Entity {
	if e == nil {
		return nil
	}
	var out []*Entity
	for _, c := range e.Children {
		if c.EntityType == t {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits the entity and all descendants depth first.
func (e *Entity) Walk(fn func(*Entity)) {
	if e == nil {
		return
	}
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}
