//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory storage implementation for
// scorecards.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/piqi-framework/piqi-go/scorecard"
)

// Option configures the in-memory scorecard manager.
type Option func(*Manager)

// WithCapacity bounds the number of retained scorecards. When the bound
// is exceeded the oldest saved scorecard is evicted. Zero or negative
// means unbounded.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		m.capacity = n
	}
}

// Manager implements scorecard.Manager backed by process memory.
type Manager struct {
	mu       sync.RWMutex
	cards    map[string]*scorecard.Scorecard
	order    []string // save order, oldest first
	capacity int
}

var _ scorecard.Manager = (*Manager)(nil)

// NewManager creates a new in-memory scorecard manager.
func NewManager(opt ...Option) *Manager {
	m := &Manager{cards: make(map[string]*scorecard.Scorecard)}
	for _, o := range opt {
		o(m)
	}
	return m
}

// Save stores a copy of the scorecard and returns its ID.
func (m *Manager) Save(ctx context.Context, card *scorecard.Scorecard) (string, error) {
	_ = ctx
	if card == nil {
		return "", errors.New("scorecard is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := card.ID
	if id == "" {
		id = uuid.NewString()
	}
	stored := card.Clone()
	stored.ID = id
	if _, exists := m.cards[id]; !exists {
		m.order = append(m.order, id)
	}
	m.cards[id] = stored
	m.evict()
	return id, nil
}

// Get retrieves a scorecard by ID.
func (m *Manager) Get(ctx context.Context, id string) (*scorecard.Scorecard, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scorecard.ErrNotFound, id)
	}
	return card.Clone(), nil
}

// List returns all stored scorecards, newest first.
func (m *Manager) List(ctx context.Context) ([]*scorecard.Scorecard, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*scorecard.Scorecard, 0, len(m.cards))
	for _, card := range m.cards {
		out = append(out, card.Clone())
	}
	scorecard.SortNewestFirst(out)
	return out, nil
}

// Close releases manager resources.
func (m *Manager) Close() error {
	return nil
}

// evict drops the oldest scorecards beyond the capacity bound. Callers
// hold the write lock.
func (m *Manager) evict() {
	if m.capacity <= 0 {
		return
	}
	for len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.cards, oldest)
	}
}
