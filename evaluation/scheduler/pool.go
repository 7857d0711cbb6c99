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
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
)

type slotTaskParam struct {
	ctx   context.Context
	sched *Scheduler
	item  *evaltree.Item
	slot  *evaltree.Result
	wg    *sync.WaitGroup
}

func (p *slotTaskParam) reset() {
	p.ctx = nil
	p.sched = nil
	p.item = nil
	p.slot = nil
	p.wg = nil
}

var slotTaskParamPool = &sync.Pool{
	New: func() any { return new(slotTaskParam) },
}

func createSlotPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*slotTaskParam)
		if !ok {
			panic("slot pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			slotTaskParamPool.Put(param)
		}()
		param.sched.finalize(param.ctx, param.item, param.slot)
	})
	if err != nil {
		return nil, fmt.Errorf("create slot pool: %w", err)
	}
	return pool, nil
}

// dispatchConcurrent fans independent slots out to the worker pool and
// waits for all of them. A slot the pool cannot take runs inline.
func (s *Scheduler) dispatchConcurrent(ctx context.Context, item *evaltree.Item, slots []*evaltree.Result) {
	var wg sync.WaitGroup
	for _, slot := range slots {
		wg.Add(1)
		param := slotTaskParamPool.Get().(*slotTaskParam)
		param.ctx = ctx
		param.sched = s
		param.item = item
		param.slot = slot
		param.wg = &wg
		if err := s.pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			slotTaskParamPool.Put(param)
			s.finalize(ctx, item, slot)
		}
	}
	wg.Wait()
}
