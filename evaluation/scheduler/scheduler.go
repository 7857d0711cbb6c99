//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	itelemetry "github.com/piqi-framework/piqi-go/internal/telemetry"
	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/sam"
	"github.com/piqi-framework/piqi-go/sam/registry"
)

// Reasons recorded on slots finalized by reference resolution instead
// of their own SAM.
const (
	ConditionalNotMetReason = "conditional not met"
	DependencySkippedReason = "dependency skipped"
	DependencyFailedReason  = "dependency failed"
)

// Option configures the scheduler.
type Option func(*options)

type options struct {
	parallelism int
}

// WithParallelism enables concurrent dispatch of independent slots
// through a worker pool of the given size. Zero or one keeps dispatch
// sequential.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// Scheduler finalizes every result slot of a planned evaluation tree in
// post-order, resolving conditional and dependent references before
// dispatching SAMs. A scheduler is safe for sequential reuse across
// evaluations.
type Scheduler struct {
	registry registry.Registry
	pool     *ants.PoolWithFunc
}

// New creates a scheduler resolving SAMs through the given registry.
func New(reg registry.Registry, opt ...Option) (*Scheduler, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	s := &Scheduler{registry: reg}
	if opts.parallelism > 1 {
		pool, err := createSlotPool(opts.parallelism)
		if err != nil {
			return nil, fmt.Errorf("create slot pool: %w", err)
		}
		s.pool = pool
	}
	return s, nil
}

// Close releases the worker pool, if any.
func (s *Scheduler) Close() error {
	if s.pool != nil {
		s.pool.Release()
	}
	return nil
}

// Run finalizes every slot of the tree, children before parents so
// structural SAMs see finalized child results. Cancellation mid-run
// finalizes the remaining pending slots as cancelled and reports
// partial=true; cancellation before any slot ran returns the context
// error instead.
func (s *Scheduler) Run(ctx context.Context, tree *evaltree.Tree) (bool, error) {
	if tree == nil {
		return false, errors.New("tree is nil")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	items := tree.PostOrder()
	for _, item := range items {
		s.runItem(ctx, item)
	}
	partial := false
	for _, item := range items {
		for _, slot := range item.Slots() {
			if slot.Cancelled {
				partial = true
			}
		}
	}
	return partial, nil
}

// runItem finalizes the item's slots in ascending slot order. When the
// pool is enabled, slots with no conditional or dependent edge in or
// out dispatch concurrently first; chained slots always run
// sequentially afterwards.
func (s *Scheduler) runItem(ctx context.Context, item *evaltree.Item) {
	slots := item.Slots()
	if s.pool == nil || len(slots) < 2 {
		for _, slot := range slots {
			s.finalize(ctx, item, slot)
		}
		return
	}
	referenced := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if ref := slot.Criterion.ConditionalOn; ref != nil {
			referenced[ref.Key()] = true
		}
		if ref := slot.Criterion.DependentOn; ref != nil {
			referenced[ref.Key()] = true
		}
	}
	var independent, chained []*evaltree.Result
	for _, slot := range slots {
		c := slot.Criterion
		if c.ConditionalOn == nil && c.DependentOn == nil && !referenced[slot.Key()] {
			independent = append(independent, slot)
		} else {
			chained = append(chained, slot)
		}
	}
	s.dispatchConcurrent(ctx, item, independent)
	for _, slot := range chained {
		s.finalize(ctx, item, slot)
	}
}

// finalize drives one slot to a final outcome. Conditional and
// dependent references resolve first, recursively, on the same item.
// Finalized slots are left untouched, so finalize may reach a slot any
// number of times.
func (s *Scheduler) finalize(ctx context.Context, item *evaltree.Item, slot *evaltree.Result) {
	if slot.Final() {
		return
	}
	if ctx.Err() != nil {
		slot.MarkCancelled()
		return
	}
	c := slot.Criterion
	if ref := c.ConditionalOn; ref != nil {
		cond, ok := item.Slot(ref.Key())
		if !ok {
			slot.MarkSkipInherited(ref.SamMnemonic, ConditionalNotMetReason)
			return
		}
		s.finalize(ctx, item, cond)
		if cond.Cancelled {
			slot.MarkCancelled()
			return
		}
		if !cond.Passed() {
			slot.MarkSkipInherited(cond.Sam(), ConditionalNotMetReason)
			log.Tracef("slot %s on %s skipped: conditional %s not met", slot.Key(), item.Key, cond.Key())
			return
		}
	}
	if ref := c.DependentOn; ref != nil {
		if dep, ok := item.Slot(ref.Key()); ok {
			s.finalize(ctx, item, dep)
			if dep.Cancelled {
				slot.MarkCancelled()
				return
			}
			if dep.Skipped() {
				slot.MarkSkipInherited(dep.Sam(), DependencySkippedReason)
				return
			}
			if dep.Failed() {
				slot.MarkFailInherited(dep.Sam(), DependencyFailedReason)
				return
			}
		}
	}
	s.dispatch(ctx, item, slot)
}

// dispatch resolves the SAM and finalizes the slot from its response.
// A SAM-level error finalizes this one slot as failed with the error
// text surfaced separately; the traversal always continues.
func (s *Scheduler) dispatch(ctx context.Context, item *evaltree.Item, slot *evaltree.Result) {
	mnemonic := slot.Sam()
	impl, err := s.registry.Get(mnemonic)
	if err != nil {
		slot.MarkErrored(fmt.Sprintf("sam %s is not registered", mnemonic))
		return
	}
	resp := s.call(ctx, impl, item, slot)
	itelemetry.IncSAMCallCnt(ctx, mnemonic, resp.State.String())
	if resp.State == sam.StateErrored && ctx.Err() != nil {
		// The error is cancellation surfacing through the SAM call.
		slot.MarkCancelled()
		return
	}
	switch resp.State {
	case sam.StateSucceeded:
		slot.MarkPassed()
	case sam.StateFailed:
		slot.MarkFailed(resp.FailReason)
	case sam.StateSkipped:
		slot.MarkSkipped(resp.SkipReason)
	case sam.StateErrored:
		slot.MarkErrored(resp.ErrorMessage)
	default:
		slot.MarkErrored(fmt.Sprintf("sam %s returned unexpected state %v", mnemonic, resp.State))
	}
	log.Tracef("slot %s on item %s: %s", slot.Key(), item.Key, slot.Outcome)
}

// call runs the SAM, translating returned errors, nil responses and
// panics into errored responses local to this slot.
func (s *Scheduler) call(ctx context.Context, impl sam.SAM, item *evaltree.Item, slot *evaltree.Result) (resp *sam.Response) {
	mnemonic := slot.Sam()
	defer func() {
		if r := recover(); r != nil {
			resp = sam.Errorf("sam %s panicked: %v", mnemonic, r)
		}
	}()
	got, err := impl.Evaluate(ctx, item, slot.Criterion.Parameters)
	if err != nil {
		return sam.Errorf("sam %s: %v", mnemonic, err)
	}
	if got == nil {
		return sam.Errorf("sam %s returned no response", mnemonic)
	}
	return got
}
