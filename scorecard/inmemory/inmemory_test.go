//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/scorecard"
)

func TestManagerSaveGetList(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	defer mgr.Close()

	_, err := mgr.Save(ctx, nil)
	assert.Error(t, err)

	card := &scorecard.Scorecard{
		MessageID:      "msg-1",
		ProcessDate:    "2026-03-01T09:00:00Z",
		MessageResults: &scorecard.ScoreSummary{Denominator: 4, Numerator: 3, PIQIScore: 75},
	}
	id, err := mgr.Save(ctx, card)
	require.NoError(t, err)
	assert.NotEmpty(t, id, "an ID is assigned when the scorecard has none")
	assert.Empty(t, card.ID, "the caller's scorecard is not mutated")

	got, err := mgr.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "msg-1", got.MessageID)
	assert.Equal(t, 75, got.MessageResults.PIQIScore)

	_, err = mgr.Get(ctx, "missing")
	assert.ErrorIs(t, err, scorecard.ErrNotFound)

	later := &scorecard.Scorecard{ID: "card-2", ProcessDate: "2026-03-02T09:00:00Z"}
	_, err = mgr.Save(ctx, later)
	require.NoError(t, err)

	cards, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "card-2", cards[0].ID, "newest process date lists first")
	assert.Equal(t, id, cards[1].ID)
}

func TestManagerIsolatesStoredCopies(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	defer mgr.Close()

	id, err := mgr.Save(ctx, &scorecard.Scorecard{
		MessageResults: &scorecard.ScoreSummary{Numerator: 1},
		EvaluationErrors: []*scorecard.EvaluationError{
			{ItemKey: "Patient", Message: "boom"},
		},
	})
	require.NoError(t, err)

	got, err := mgr.Get(ctx, id)
	require.NoError(t, err)
	got.MessageResults.Numerator = 99
	got.EvaluationErrors[0].Message = "changed"

	again, err := mgr.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, again.MessageResults.Numerator)
	assert.Equal(t, "boom", again.EvaluationErrors[0].Message)
}

func TestManagerUpsertKeepsOneEntry(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	defer mgr.Close()

	_, err := mgr.Save(ctx, &scorecard.Scorecard{ID: "card-1", MessageID: "first"})
	require.NoError(t, err)
	_, err = mgr.Save(ctx, &scorecard.Scorecard{ID: "card-1", MessageID: "second"})
	require.NoError(t, err)

	cards, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "second", cards[0].MessageID)
}

func TestManagerCapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(WithCapacity(2))
	defer mgr.Close()

	for _, id := range []string{"card-1", "card-2", "card-3"} {
		_, err := mgr.Save(ctx, &scorecard.Scorecard{ID: id})
		require.NoError(t, err)
	}

	_, err := mgr.Get(ctx, "card-1")
	assert.ErrorIs(t, err, scorecard.ErrNotFound)

	cards, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}
