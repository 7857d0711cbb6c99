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
	"errors"
	"fmt"
)

// ErrInvalidReferenceData reports reference data that cannot be indexed.
// It is fatal to any evaluation that would have used the data.
var ErrInvalidReferenceData = errors.New("invalid reference data")

// Index is the read-only lookup surface over a validated bundle. It is
// frozen once NewIndex returns and safe for concurrent use.
type Index struct {
	entities    map[string]*Entity
	roots       map[string]*Entity
	codeSystems map[string]*CodeSystem
	valueSets   map[string]*ValueSet
	sams        map[string]*SAMDescriptor
	rubrics     map[string]*Rubric
	active      *Rubric
}

// IndexOption configures index construction.
type IndexOption func(*indexOptions)

type indexOptions struct {
	activeRubric string
}

// WithActiveRubric selects the rubric returned by Rubric. The default is
// the first rubric of the bundle.
func WithActiveRubric(mnemonic string) IndexOption {
	return func(o *indexOptions) {
		o.activeRubric = mnemonic
	}
}

// NewIndex validates the bundle and builds the frozen index. Any
// violation wraps ErrInvalidReferenceData.
func NewIndex(bundle *Bundle, opts ...IndexOption) (*Index, error) {
	if bundle == nil {
		return nil, fmt.Errorf("%w: bundle is nil", ErrInvalidReferenceData)
	}
	var o indexOptions
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		entities:    make(map[string]*Entity),
		roots:       make(map[string]*Entity),
		codeSystems: make(map[string]*CodeSystem),
		valueSets:   make(map[string]*ValueSet),
		sams:        make(map[string]*SAMDescriptor),
		rubrics:     make(map[string]*Rubric),
	}

	for _, root := range bundle.ModelLibrary {
		if err := idx.indexModel(root); err != nil {
			return nil, err
		}
	}
	for _, cs := range bundle.CodeSystemLibrary {
		if err := idx.indexCodeSystem(cs); err != nil {
			return nil, err
		}
	}
	for _, vs := range bundle.ValueSetLibrary {
		if err := idx.indexValueSet(vs); err != nil {
			return nil, err
		}
	}
	for _, d := range bundle.SAMLibrary {
		if err := idx.indexSAM(d); err != nil {
			return nil, err
		}
	}
	for _, r := range bundle.EvaluationProfileLibrary {
		if err := idx.indexRubric(r); err != nil {
			return nil, err
		}
	}

	if o.activeRubric != "" {
		r, ok := idx.rubrics[o.activeRubric]
		if !ok {
			return nil, fmt.Errorf("%w: active rubric %s not found", ErrInvalidReferenceData, o.activeRubric)
		}
		idx.active = r
	} else if len(bundle.EvaluationProfileLibrary) > 0 {
		idx.active = bundle.EvaluationProfileLibrary[0]
	}
	return idx, nil
}

func (x *Index) indexModel(root *Entity) error {
	if root == nil {
		return fmt.Errorf("%w: model entry is nil", ErrInvalidReferenceData)
	}
	if root.EntityType != EntityTypeRoot {
		return fmt.Errorf("%w: model %s is not a root entity", ErrInvalidReferenceData, root.Mnemonic)
	}
	var walkErr error
	root.Walk(func(e *Entity) {
		if walkErr != nil {
			return
		}
		if e.Mnemonic == "" {
			walkErr = fmt.Errorf("%w: entity without mnemonic under model %s", ErrInvalidReferenceData, root.Mnemonic)
			return
		}
		if _, dup := x.entities[e.Mnemonic]; dup {
			walkErr = fmt.Errorf("%w: duplicate entity mnemonic %s", ErrInvalidReferenceData, e.Mnemonic)
			return
		}
		if e.EntityType == EntityTypeUnknown {
			walkErr = fmt.Errorf("%w: entity %s has unknown type", ErrInvalidReferenceData, e.Mnemonic)
			return
		}
		if e.EntityType == EntityTypeClass {
			if n := len(e.ChildrenOfType(EntityTypeElement)); n != 1 {
				walkErr = fmt.Errorf("%w: class %s must carry exactly one element template, has %d",
					ErrInvalidReferenceData, e.Mnemonic, n)
				return
			}
		}
		x.entities[e.Mnemonic] = e
	})
	if walkErr != nil {
		return walkErr
	}
	x.roots[root.Mnemonic] = root
	return nil
}

func (x *Index) indexCodeSystem(cs *CodeSystem) error {
	if cs == nil || cs.Mnemonic == "" {
		return fmt.Errorf("%w: code system without mnemonic", ErrInvalidReferenceData)
	}
	if cs.URI == "" {
		return fmt.Errorf("%w: code system %s without uri", ErrInvalidReferenceData, cs.Mnemonic)
	}
	if _, dup := x.codeSystems[cs.Mnemonic]; dup {
		return fmt.Errorf("%w: duplicate code system key %s", ErrInvalidReferenceData, cs.Mnemonic)
	}
	if _, dup := x.codeSystems[cs.URI]; dup {
		return fmt.Errorf("%w: duplicate code system key %s", ErrInvalidReferenceData, cs.URI)
	}
	// Mnemonic and canonical URI resolve to the same value.
	x.codeSystems[cs.Mnemonic] = cs
	x.codeSystems[cs.URI] = cs
	return nil
}

func (x *Index) indexValueSet(vs *ValueSet) error {
	if vs == nil || vs.Mnemonic == "" {
		return fmt.Errorf("%w: value set without mnemonic", ErrInvalidReferenceData)
	}
	if _, dup := x.valueSets[vs.Mnemonic]; dup {
		return fmt.Errorf("%w: duplicate value set key %s", ErrInvalidReferenceData, vs.Mnemonic)
	}
	x.valueSets[vs.Mnemonic] = vs
	if vs.URI != "" {
		if _, dup := x.valueSets[vs.URI]; dup {
			return fmt.Errorf("%w: duplicate value set key %s", ErrInvalidReferenceData, vs.URI)
		}
		x.valueSets[vs.URI] = vs
	}
	return nil
}

func (x *Index) indexSAM(d *SAMDescriptor) error {
	if d == nil || d.Mnemonic == "" {
		return fmt.Errorf("%w: SAM descriptor without mnemonic", ErrInvalidReferenceData)
	}
	if _, dup := x.sams[d.Mnemonic]; dup {
		return fmt.Errorf("%w: duplicate SAM mnemonic %s", ErrInvalidReferenceData, d.Mnemonic)
	}
	x.sams[d.Mnemonic] = d
	return nil
}

func (x *Index) indexRubric(r *Rubric) error {
	if r == nil || r.Mnemonic == "" {
		return fmt.Errorf("%w: rubric without mnemonic", ErrInvalidReferenceData)
	}
	if _, dup := x.rubrics[r.Mnemonic]; dup {
		return fmt.Errorf("%w: duplicate rubric mnemonic %s", ErrInvalidReferenceData, r.Mnemonic)
	}
	seen := make(map[string]struct{}, len(r.EvaluationCriteria))
	for _, c := range r.EvaluationCriteria {
		if c == nil {
			return fmt.Errorf("%w: rubric %s has a nil criterion", ErrInvalidReferenceData, r.Mnemonic)
		}
		if c.SamMnemonic == "" {
			return fmt.Errorf("%w: rubric %s criterion %d without SAM mnemonic", ErrInvalidReferenceData, r.Mnemonic, c.Sequence)
		}
		if _, ok := x.sams[c.SamMnemonic]; !ok {
			return fmt.Errorf("%w: rubric %s references unknown SAM %s", ErrInvalidReferenceData, r.Mnemonic, c.SamMnemonic)
		}
		if _, ok := x.entities[c.EntityMnemonic]; !ok {
			return fmt.Errorf("%w: rubric %s references unknown entity %s", ErrInvalidReferenceData, r.Mnemonic, c.EntityMnemonic)
		}
		if c.ScoringWeight < 0 {
			return fmt.Errorf("%w: rubric %s criterion %s has negative weight", ErrInvalidReferenceData, r.Mnemonic, c.Key())
		}
		if _, dup := seen[c.Key()]; dup {
			return fmt.Errorf("%w: rubric %s has duplicate criterion key %s", ErrInvalidReferenceData, r.Mnemonic, c.Key())
		}
		seen[c.Key()] = struct{}{}
	}
	x.rubrics[r.Mnemonic] = r
	return nil
}

// Entity returns the entity with the given mnemonic.
func (x *Index) Entity(mnemonic string) (*Entity, bool) {
	e, ok := x.entities[mnemonic]
	return e, ok
}

// RootEntity returns the model root with the given mnemonic.
func (x *Index) RootEntity(mnemonic string) (*Entity, bool) {
	e, ok := x.roots[mnemonic]
	return e, ok
}

// CodeSystem returns the code system registered under the given mnemonic
// or canonical URI.
func (x *Index) CodeSystem(mnemonicOrURI string) (*CodeSystem, bool) {
	cs, ok := x.codeSystems[mnemonicOrURI]
	return cs, ok
}

// ValueSet returns the value set registered under the given mnemonic or
// canonical URI.
func (x *Index) ValueSet(mnemonicOrURI string) (*ValueSet, bool) {
	vs, ok := x.valueSets[mnemonicOrURI]
	return vs, ok
}

// SAMDescriptor returns the SAM descriptor with the given mnemonic.
func (x *Index) SAMDescriptor(mnemonic string) (*SAMDescriptor, bool) {
	d, ok := x.sams[mnemonic]
	return d, ok
}

// Rubric returns the active rubric, nil when the bundle carried none.
func (x *Index) Rubric() *Rubric {
	return x.active
}

// RubricByMnemonic returns the rubric with the given mnemonic.
func (x *Index) RubricByMnemonic(mnemonic string) (*Rubric, bool) {
	r, ok := x.rubrics[mnemonic]
	return r, ok
}

// Rubrics returns all rubrics in unspecified order.
func (x *Index) Rubrics() []*Rubric {
	out := make([]*Rubric, 0, len(x.rubrics))
	for _, r := range x.rubrics {
		out = append(out, r)
	}
	return out
}

// SAMDescriptors returns all SAM descriptors in unspecified order.
func (x *Index) SAMDescriptors() []*SAMDescriptor {
	out := make([]*SAMDescriptor, 0, len(x.sams))
	for _, d := range x.sams {
		out = append(out, d)
	}
	return out
}
