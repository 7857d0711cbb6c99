//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package local loads reference data bundles from a directory tree and
// keeps them fresh: Load builds a frozen index once, Watcher rebuilds
// it whenever the documents change.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/refdata"
)

const (
	defaultPattern  = "**/*.json"
	defaultDebounce = 500 * time.Millisecond
)

// Option configures loading and watching.
type Option func(*options)

type options struct {
	pattern      string
	indexOptions []refdata.IndexOption
	debounce     time.Duration
	onSwap       func(*refdata.Index)
}

func newOptions(opt ...Option) *options {
	opts := &options{
		pattern:  defaultPattern,
		debounce: defaultDebounce,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// WithPattern replaces the default **/*.json document glob. The pattern
// uses doublestar syntax relative to the bundle directory.
func WithPattern(pattern string) Option {
	return func(o *options) {
		o.pattern = pattern
	}
}

// WithIndexOptions forwards options to index construction, e.g.
// refdata.WithActiveRubric.
func WithIndexOptions(opt ...refdata.IndexOption) Option {
	return func(o *options) {
		o.indexOptions = append(o.indexOptions, opt...)
	}
}

// WithDebounce sets how long file changes settle before the watcher
// rebuilds the index.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithOnSwap registers a callback invoked with each successfully
// rebuilt index, after the swap.
func WithOnSwap(fn func(*refdata.Index)) Option {
	return func(o *options) {
		o.onSwap = fn
	}
}

// Load reads every bundle document under dir, merges them in path order
// and builds the frozen index. A directory with no matching documents
// is invalid reference data.
func Load(dir string, opt ...Option) (*refdata.Index, error) {
	return load(dir, newOptions(opt...))
}

func load(dir string, opts *options) (*refdata.Index, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: bundle directory is empty", refdata.ErrInvalidReferenceData)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), opts.pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: glob %s: %v", refdata.ErrInvalidReferenceData, opts.pattern, err)
	}
	// Path order keeps the merge, and so the default rubric, stable.
	sort.Strings(matches)

	bundle := &refdata.Bundle{}
	loaded := 0
	for _, match := range matches {
		path := filepath.Join(dir, match)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		bundle.Merge(doc)
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%w: no bundle documents match %s under %s",
			refdata.ErrInvalidReferenceData, opts.pattern, dir)
	}
	idx, err := refdata.NewIndex(bundle, opts.indexOptions...)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded reference data: %d documents under %s", loaded, dir)
	return idx, nil
}

func readDocument(path string) (*refdata.Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle document %s: %w", path, err)
	}
	var doc refdata.Bundle
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", refdata.ErrInvalidReferenceData, path, err)
	}
	return &doc, nil
}
