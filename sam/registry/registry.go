//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package registry manages the registration and retrieval of SAMs.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/piqi-framework/piqi-go/sam"
	"github.com/piqi-framework/piqi-go/sam/structural"
)

// Registry defines the interface for the SAM registry.
type Registry interface {
	// Register registers a SAM under the given mnemonic.
	Register(mnemonic string, s sam.SAM) error
	// Get retrieves a SAM by mnemonic.
	Get(mnemonic string) (sam.SAM, error)
	// List returns the mnemonics of all registered SAMs.
	List() []string
}

// registry is the default implementation of Registry.
type registry struct {
	mu   sync.RWMutex
	sams map[string]sam.SAM
}

// New creates a SAM registry with the structural SAMs pre-registered.
// Terminology and plausibility SAMs need collaborator clients and are
// registered by the caller.
func New() Registry {
	r := &registry{
		sams: make(map[string]sam.SAM),
	}
	populated := structural.NewAttributePopulated()
	r.Register(populated.Mnemonic(), populated)
	clean := structural.NewElementIsClean()
	r.Register(clean.Mnemonic(), clean)
	return r
}

// Register registers a SAM to the registry.
// A SAM registered under the same mnemonic will be overwritten.
func (r *registry) Register(mnemonic string, s sam.SAM) error {
	if s == nil {
		return errors.New("sam is nil")
	}
	if mnemonic == "" {
		mnemonic = s.Mnemonic()
	}
	if mnemonic == "" {
		return errors.New("sam mnemonic is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sams[mnemonic] = s
	return nil
}

// Get gets a SAM by mnemonic.
// Returns os.ErrNotExist if the SAM is not found.
func (r *registry) Get(mnemonic string) (sam.SAM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sams[mnemonic]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("get sam %s: %w", mnemonic, os.ErrNotExist)
}

// List returns the mnemonics of all registered SAMs sorted lexicographically.
func (r *registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mnemonics := make([]string, 0, len(r.sams))
	for m := range r.sams {
		mnemonics = append(mnemonics, m)
	}
	sort.Strings(mnemonics)
	return mnemonics
}
