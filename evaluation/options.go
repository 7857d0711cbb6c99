//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"time"

	"github.com/piqi-framework/piqi-go/sam/plausibility"
	"github.com/piqi-framework/piqi-go/sam/registry"
	"github.com/piqi-framework/piqi-go/sam/terminology"
	"github.com/piqi-framework/piqi-go/scorecard"
	scorecardinmemory "github.com/piqi-framework/piqi-go/scorecard/inmemory"
)

type options struct {
	registry         registry.Registry
	terminology      terminology.Service
	knowledge        plausibility.Service
	scorecardManager scorecard.Manager
	managerProvided  bool
	parallelism      int
	now              func() time.Time
}

func newOptions(opt ...Option) *options {
	opts := &options{
		registry:         registry.New(),
		scorecardManager: scorecardinmemory.NewManager(),
		now:              time.Now,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// Option configures the evaluator.
type Option func(*options)

// WithRegistry replaces the default SAM registry.
func WithRegistry(r registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithTerminologyService enables the terminology SAMs backed by the
// given service. *fhir.Client satisfies it.
func WithTerminologyService(svc terminology.Service) Option {
	return func(o *options) {
		o.terminology = svc
	}
}

// WithKnowledgeService enables the plausibility SAMs backed by the
// given service. *knowledge.Client satisfies it.
func WithKnowledgeService(svc plausibility.Service) Option {
	return func(o *options) {
		o.knowledge = svc
	}
}

// WithScorecardManager replaces the default in-memory scorecard store.
// The caller keeps ownership of a provided manager; Close leaves it open.
func WithScorecardManager(m scorecard.Manager) Option {
	return func(o *options) {
		o.scorecardManager = m
		o.managerProvided = true
	}
}

// WithParallelism dispatches independent same-item SAMs concurrently
// through a pool of the given size. Zero or one keeps dispatch
// sequential.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithClock overrides the process date source. Tests use it to pin
// scorecard timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
