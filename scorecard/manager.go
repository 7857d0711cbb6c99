//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package scorecard

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound reports that no scorecard exists under the requested ID.
var ErrNotFound = errors.New("scorecard not found")

// Manager stores scorecards for later retrieval.
type Manager interface {
	// Save stores the scorecard and returns its ID, assigning a fresh
	// one when the scorecard has none.
	Save(ctx context.Context, card *Scorecard) (string, error)
	// Get retrieves a stored scorecard by ID. The error wraps
	// ErrNotFound when no such scorecard exists.
	Get(ctx context.Context, id string) (*Scorecard, error)
	// List returns the stored scorecards, newest first.
	List(ctx context.Context) ([]*Scorecard, error)
	// Close releases manager resources.
	Close() error
}

// Clone returns a deep copy of the scorecard.
func (s *Scorecard) Clone() *Scorecard {
	if s == nil {
		return nil
	}
	out := *s
	if s.MessageResults != nil {
		mr := *s.MessageResults
		out.MessageResults = &mr
	}
	if s.DataClassResults != nil {
		out.DataClassResults = make([]*DataClassResult, len(s.DataClassResults))
		for i, c := range s.DataClassResults {
			cc := *c
			out.DataClassResults[i] = &cc
		}
	}
	if s.InformationalResults != nil {
		out.InformationalResults = make([]*InformationalClassResult, len(s.InformationalResults))
		for i, g := range s.InformationalResults {
			gg := *g
			if g.Evaluations != nil {
				gg.Evaluations = make([]*InformationalEvaluation, len(g.Evaluations))
				for j, e := range g.Evaluations {
					ee := *e
					gg.Evaluations[j] = &ee
				}
			}
			out.InformationalResults[i] = &gg
		}
	}
	if s.EvaluationErrors != nil {
		out.EvaluationErrors = make([]*EvaluationError, len(s.EvaluationErrors))
		for i, e := range s.EvaluationErrors {
			ee := *e
			out.EvaluationErrors[i] = &ee
		}
	}
	return &out
}

// SortNewestFirst orders scorecards by process date descending, ID
// ascending on ties. RFC 3339 timestamps sort chronologically as
// strings.
func SortNewestFirst(cards []*Scorecard) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].ProcessDate != cards[j].ProcessDate {
			return cards[i].ProcessDate > cards[j].ProcessDate
		}
		return cards[i].ID < cards[j].ID
	})
}
