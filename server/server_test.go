//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/scorecard"
)

// testBundle carries a minimal patient model, one structural SAM, and
// two rubrics. The first rubric is the active default.
func testBundle() *refdata.Bundle {
	return &refdata.Bundle{
		ModelLibrary: []*refdata.Entity{
			{
				Mnemonic: "Patient", Name: "Patient", EntityType: refdata.EntityTypeRoot,
				Children: []*refdata.Entity{
					{Mnemonic: "PatientID", Name: "PatientID", FieldName: "patientId", EntityType: refdata.EntityTypeAttribute},
					{Mnemonic: "BirthDate", Name: "BirthDate", FieldName: "birthDate", EntityType: refdata.EntityTypeAttribute},
				},
			},
		},
		SAMLibrary: []*refdata.SAMDescriptor{
			{Mnemonic: "attribute-populated", Name: "Attribute Populated"},
		},
		EvaluationProfileLibrary: []*refdata.Rubric{
			{
				Mnemonic: "core",
				Name:     "Core Quality",
				EvaluationCriteria: []*refdata.Criterion{
					{Sequence: 1, SamMnemonic: "attribute-populated", EntityMnemonic: "PatientID", ScoringWeight: 1},
					{Sequence: 2, SamMnemonic: "attribute-populated", EntityMnemonic: "BirthDate", ScoringWeight: 1},
				},
			},
			{
				Mnemonic: "strict",
				Name:     "Strict",
				EvaluationCriteria: []*refdata.Criterion{
					{Sequence: 1, SamMnemonic: "attribute-populated", EntityMnemonic: "PatientID", ScoringWeight: 1, CriticalityIndicator: true},
				},
			},
		},
	}
}

func newTestIndex(t *testing.T, mutate func(*refdata.Bundle)) *refdata.Index {
	t.Helper()
	bundle := testBundle()
	if mutate != nil {
		mutate(bundle)
	}
	idx, err := refdata.NewIndex(bundle)
	require.NoError(t, err)
	return idx
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := New(newTestIndex(t, nil), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNewRequiresIndex(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference index is nil")
}

func TestHandleEvaluate(t *testing.T) {
	s := newTestServer(t)

	envelope := `{"messageId":"m-1","rootMnemonic":"Patient","body":{"patientId":"p-1"}}`
	w := doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "m-1", card.MessageID)
	require.NotNil(t, card.MessageResults)
	// PatientID populated, BirthDate missing: one of two criteria passes.
	assert.Equal(t, 2, card.MessageResults.Denominator)
	assert.Equal(t, 1, card.MessageResults.Numerator)
	assert.Equal(t, 50, card.MessageResults.PIQIScore)
}

func TestHandleEvaluateStoresScorecard(t *testing.T) {
	s := newTestServer(t)

	envelope := `{"messageId":"m-1","rootMnemonic":"Patient","body":{"patientId":"p-1"}}`
	w := doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
	require.Equal(t, http.StatusOK, w.Code)
	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))

	w = doRequest(s, http.MethodGet, "/api/v1/scorecards/"+card.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, card.ID, fetched.ID)
	assert.Equal(t, "m-1", fetched.MessageID)

	w = doRequest(s, http.MethodGet, "/api/v1/scorecards", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cards []*scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)
}

func TestHandleEvaluateRubricOverride(t *testing.T) {
	s := newTestServer(t)

	envelope := `{"messageId":"m-2","rootMnemonic":"Patient","rubricMnemonic":"strict","body":{"patientId":"p-1"}}`
	w := doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
	require.Equal(t, http.StatusOK, w.Code)
	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.Equal(t, "Strict", card.EvaluationRubric)
	assert.Equal(t, 100, card.MessageResults.PIQIScore)
}

func TestHandleEvaluateBadRequests(t *testing.T) {
	s := newTestServer(t)

	t.Run("malformed JSON", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/v1/evaluate", "not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "decode message")
	})
	t.Run("unknown root", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/v1/evaluate",
			`{"messageId":"m-3","rootMnemonic":"Ghost","body":{}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("unknown rubric", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/v1/evaluate",
			`{"messageId":"m-4","rootMnemonic":"Patient","rubricMnemonic":"nope","body":{}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("wrong method", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/evaluate", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleGetScorecardNotFound(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/scorecards/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Scorecard not found")
}

func TestHandleListScorecardsEmpty(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/scorecards", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestHandleListRubrics(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/reference/rubrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []rubricInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "core", infos[0].Mnemonic)
	assert.True(t, infos[0].Active)
	assert.Equal(t, 2, infos[0].CriteriaCount)
	assert.Equal(t, "strict", infos[1].Mnemonic)
	assert.False(t, infos[1].Active)
	assert.Equal(t, 1, infos[1].CriteriaCount)
}

func TestHandleListSAMs(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/reference/sams", "")
	require.Equal(t, http.StatusOK, w.Code)

	var descriptors []*refdata.SAMDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &descriptors))
	require.Len(t, descriptors, 1)
	assert.Equal(t, "attribute-populated", descriptors[0].Mnemonic)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "serving")
}

func TestHandleCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/evaluate", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPost, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestReloadSwapsReferenceData(t *testing.T) {
	s := newTestServer(t)

	envelope := `{"messageId":"m-1","rootMnemonic":"Patient","body":{"patientId":"p-1"}}`
	w := doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
	require.Equal(t, http.StatusOK, w.Code)

	next := newTestIndex(t, func(b *refdata.Bundle) {
		b.EvaluationProfileLibrary = b.EvaluationProfileLibrary[1:] // strict only
	})
	require.NoError(t, s.Reload(next))

	w = doRequest(s, http.MethodGet, "/api/v1/reference/rubrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var infos []rubricInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "strict", infos[0].Mnemonic)
	assert.True(t, infos[0].Active)

	// Scorecards saved before the reload survive it.
	w = doRequest(s, http.MethodGet, "/api/v1/scorecards", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cards []*scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Len(t, cards, 1)

	// New evaluations run against the reloaded rubric set.
	w = doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
	require.Equal(t, http.StatusOK, w.Code)
	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.Equal(t, "Strict", card.EvaluationRubric)
}

func TestEvaluateAcrossManyRequests(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		envelope := fmt.Sprintf(`{"messageId":"m-%d","rootMnemonic":"Patient","body":{"patientId":"p-%d"}}`, i, i)
		w := doRequest(s, http.MethodPost, "/api/v1/evaluate", envelope)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := doRequest(s, http.MethodGet, "/api/v1/scorecards", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cards []*scorecard.Scorecard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Len(t, cards, 5)
}

func TestReloadAfterClose(t *testing.T) {
	s, err := New(newTestIndex(t, nil))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Reload(newTestIndex(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server is closed")
}
