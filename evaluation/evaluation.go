//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluation orchestrates message evaluation runs: it builds
// the evaluation tree, plans the rubric criteria onto it, schedules the
// assessment methods, aggregates statistics, and projects the
// scorecard.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/evaluation/scheduler"
	"github.com/piqi-framework/piqi-go/evaluation/stats"
	itelemetry "github.com/piqi-framework/piqi-go/internal/telemetry"
	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
	"github.com/piqi-framework/piqi-go/sam/plausibility"
	"github.com/piqi-framework/piqi-go/sam/registry"
	"github.com/piqi-framework/piqi-go/sam/terminology"
	"github.com/piqi-framework/piqi-go/scorecard"
)

// Evaluator runs patient messages through the evaluation pipeline.
type Evaluator interface {
	// Evaluate evaluates one message and returns its stored scorecard.
	Evaluate(ctx context.Context, msg *message.Message) (*scorecard.Scorecard, error)
	// Close releases engine resources.
	Close() error
}

// New creates an Evaluator over the given reference data index. The
// structural SAMs are always available; terminology and plausibility
// SAMs join the registry when their collaborator services are
// configured.
func New(index *refdata.Index, opt ...Option) (Evaluator, error) {
	if index == nil {
		return nil, errors.New("reference index is nil")
	}
	opts := newOptions(opt...)
	if opts.registry == nil {
		return nil, errors.New("registry is nil")
	}
	if opts.scorecardManager == nil {
		return nil, errors.New("scorecard manager is nil")
	}
	if opts.now == nil {
		return nil, errors.New("clock is nil")
	}

	reg := opts.registry
	sams := []sam.SAM{terminology.NewCodeSystemInterop(index)}
	if opts.terminology != nil {
		sams = append(sams,
			terminology.NewCodeLookupDisplay(index, opts.terminology),
			terminology.NewValueSetMembership(index, opts.terminology),
		)
	}
	if opts.knowledge != nil {
		sams = append(sams,
			plausibility.NewLabResultPlausible(opts.knowledge),
			plausibility.NewLabDevicePlausible(opts.knowledge),
		)
	}
	for _, s := range sams {
		if err := reg.Register(s.Mnemonic(), s); err != nil {
			return nil, fmt.Errorf("register sam %s: %w", s.Mnemonic(), err)
		}
	}

	sched, err := scheduler.New(reg, scheduler.WithParallelism(opts.parallelism))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &evaluator{
		index:          index,
		registry:       reg,
		scheduler:      sched,
		scorecards:     opts.scorecardManager,
		ownsScorecards: !opts.managerProvided,
		now:            opts.now,
	}, nil
}

// evaluator is the default implementation of Evaluator.
type evaluator struct {
	index          *refdata.Index
	registry       registry.Registry
	scheduler      *scheduler.Scheduler
	scorecards     scorecard.Manager
	ownsScorecards bool
	now            func() time.Time
}

// Evaluate runs the pipeline on one message. Cancellation mid-run still
// yields a scorecard, marked partial; cancellation before any slot ran
// returns the context error.
func (e *evaluator) Evaluate(ctx context.Context, msg *message.Message) (*scorecard.Scorecard, error) {
	if msg == nil {
		return nil, errors.New("message is nil")
	}
	start := time.Now()
	ctx, span := itelemetry.Tracer.Start(ctx, itelemetry.NewEvaluateSpanName(msg.MessageID))
	defer span.End()

	rubric, err := e.selectRubric(msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		itelemetry.KeyMessageID.String(msg.MessageID),
		itelemetry.KeyRubric.String(rubric.Mnemonic),
	)

	msgTree, err := message.BuildTree(msg, e.index)
	if err != nil {
		return nil, fmt.Errorf("build message tree: %w", err)
	}
	tree, err := evaltree.Build(e.index, msgTree)
	if err != nil {
		return nil, fmt.Errorf("build evaluation tree: %w", err)
	}
	if err := scheduler.BuildPlan(tree, rubric); err != nil {
		return nil, fmt.Errorf("plan criteria: %w", err)
	}

	partial, err := e.scheduler.Run(ctx, tree)
	if err != nil {
		return nil, err
	}

	// The aggregator is fed from this single goroutine, in post-order,
	// per-item slot order.
	agg := stats.NewAggregator()
	for _, classItem := range tree.Classes() {
		agg.SeedClass(classItem.Entity.Mnemonic, len(classItem.Children))
	}
	slotCount := 0
	for _, item := range tree.PostOrder() {
		slots := item.Slots()
		slotCount += len(slots)
		for _, slot := range slots {
			agg.Add(slot)
		}
	}

	card := scorecard.Project(scorecard.ProjectInput{
		Message:     msg,
		Rubric:      rubric,
		Index:       e.index,
		Stats:       agg.Response(),
		ProcessDate: e.now(),
		Partial:     partial,
	})
	id, err := e.scorecards.Save(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("save scorecard: %w", err)
	}
	card.ID = id

	span.SetAttributes(
		itelemetry.KeyScore.Int(card.MessageResults.PIQIScore),
		itelemetry.KeyPartial.Bool(partial),
		itelemetry.KeySlotCount.Int(slotCount),
	)
	itelemetry.IncEvaluationRunCnt(ctx, rubric.Mnemonic, partial)
	itelemetry.RecordEvaluationRunDuration(ctx, rubric.Mnemonic, time.Since(start))
	log.Debugf("evaluated message %s against rubric %s: score %d over %d slots in %s",
		msg.MessageID, rubric.Mnemonic, card.MessageResults.PIQIScore, slotCount, time.Since(start))
	return card, nil
}

// selectRubric resolves the rubric for the message, the envelope
// override first, the index default otherwise.
func (e *evaluator) selectRubric(msg *message.Message) (*refdata.Rubric, error) {
	if msg.RubricMnemonic != "" {
		r, ok := e.index.RubricByMnemonic(msg.RubricMnemonic)
		if !ok {
			return nil, fmt.Errorf("%w: rubric %s not found", scheduler.ErrInvalidRubric, msg.RubricMnemonic)
		}
		return r, nil
	}
	if r := e.index.Rubric(); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("%w: no rubric configured", scheduler.ErrInvalidRubric)
}

// Close closes the evaluator and releases owned resources.
func (e *evaluator) Close() error {
	var overallErr error
	if e.scheduler != nil {
		if err := e.scheduler.Close(); err != nil {
			overallErr = errors.Join(overallErr, fmt.Errorf("close scheduler: %w", err))
		}
	}
	if e.scorecards != nil && e.ownsScorecards {
		if err := e.scorecards.Close(); err != nil {
			overallErr = errors.Join(overallErr, fmt.Errorf("close scorecard manager: %w", err))
		}
	}
	return overallErr
}
