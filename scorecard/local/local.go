//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a local file storage implementation for
// scorecards.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/piqi-framework/piqi-go/scorecard"
)

// fileSuffix marks scorecard files inside the base directory.
const fileSuffix = ".scorecard.json"

// defaultBaseDir holds scorecards when no directory is configured.
const defaultBaseDir = "scorecards"

// Option configures the local scorecard manager.
type Option func(*Manager)

// WithBaseDir overrides the default directory used to store scorecards.
func WithBaseDir(dir string) Option {
	return func(m *Manager) {
		m.baseDir = dir
	}
}

// Manager implements scorecard.Manager backed by one JSON file per
// scorecard.
type Manager struct {
	baseDir string
	mu      sync.Mutex
}

var _ scorecard.Manager = (*Manager)(nil)

// NewManager creates a new local file scorecard manager.
func NewManager(opt ...Option) *Manager {
	m := &Manager{baseDir: defaultBaseDir}
	for _, o := range opt {
		o(m)
	}
	return m
}

// Save writes the scorecard to disk and returns its ID. The write goes
// through a temporary file and a rename so readers never observe a
// partial document.
func (m *Manager) Save(ctx context.Context, card *scorecard.Scorecard) (string, error) {
	_ = ctx
	if card == nil {
		return "", errors.New("scorecard is nil")
	}
	id := card.ID
	if id == "" {
		id = uuid.NewString()
	}
	if id != filepath.Base(id) {
		return "", fmt.Errorf("scorecard id %q is not a valid file name", id)
	}
	stored := card.Clone()
	stored.ID = id

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return "", err
	}
	path := m.cardPath(id)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stored); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return id, nil
}

// Get retrieves a scorecard by ID from disk.
func (m *Manager) Get(ctx context.Context, id string) (*scorecard.Scorecard, error) {
	_ = ctx
	if id != filepath.Base(id) {
		return nil, fmt.Errorf("%w: %s", scorecard.ErrNotFound, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

// List returns all stored scorecards, newest first.
func (m *Manager) List(ctx context.Context) ([]*scorecard.Scorecard, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*scorecard.Scorecard{}, nil
		}
		return nil, err
	}
	var cards []*scorecard.Scorecard
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		card, err := m.load(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	scorecard.SortNewestFirst(cards)
	return cards, nil
}

// Close releases manager resources.
func (m *Manager) Close() error {
	return nil
}

func (m *Manager) cardPath(id string) string {
	return filepath.Join(m.baseDir, id+fileSuffix)
}

func (m *Manager) load(id string) (*scorecard.Scorecard, error) {
	f, err := os.Open(m.cardPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", scorecard.ErrNotFound, id)
		}
		return nil, err
	}
	defer f.Close()
	var card scorecard.Scorecard
	if err := json.NewDecoder(f).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode scorecard %s: %w", id, err)
	}
	return &card, nil
}
