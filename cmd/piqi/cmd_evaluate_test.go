//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/scorecard"
)

// bundleDoc is a minimal reference data document: a patient model with
// two attributes and two rubrics over the built-in populated check.
const bundleDoc = `{
  "modelLibrary": [
    {
      "mnemonic": "Patient",
      "name": "Patient",
      "entityType": "Root",
      "children": [
        {"mnemonic": "PatientID", "name": "Patient ID", "fieldName": "patientId", "entityType": "Attribute"},
        {"mnemonic": "BirthDate", "name": "Birth Date", "fieldName": "birthDate", "entityType": "Attribute"}
      ]
    }
  ],
  "samLibrary": [
    {"mnemonic": "attribute-populated", "name": "Attribute Populated"}
  ],
  "evaluationProfileLibrary": [
    {
      "mnemonic": "core",
      "name": "Core Quality",
      "evaluationCriteria": [
        {"sequence": 1, "samMnemonic": "attribute-populated", "entityMnemonic": "PatientID", "scoringEffect": "Scoring", "scoringWeight": 1},
        {"sequence": 2, "samMnemonic": "attribute-populated", "entityMnemonic": "BirthDate", "scoringEffect": "Scoring", "scoringWeight": 1}
      ]
    },
    {
      "mnemonic": "strict",
      "name": "Strict",
      "evaluationCriteria": [
        {"sequence": 1, "samMnemonic": "attribute-populated", "entityMnemonic": "PatientID", "scoringEffect": "Scoring", "scoringWeight": 1, "criticalityIndicator": true}
      ]
    }
  ]
}`

func writeRefdataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.json"), []byte(bundleDoc), 0o644))
	return dir
}

func writeMessageFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runEvaluateForTest(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	err := runEvaluate(cmd, args)
	return buf.String(), err
}

func TestRunEvaluate(t *testing.T) {
	t.Setenv("PIQI_REFDATA_DIR", writeRefdataDir(t))
	msgPath := writeMessageFile(t, `{"messageId":"m-1","rootMnemonic":"Patient","body":{"patientId":"p-1"}}`)

	out, err := runEvaluateForTest(t, []string{msgPath})
	require.NoError(t, err)

	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal([]byte(out), &card))
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "m-1", card.MessageID)
	assert.Equal(t, "Core Quality", card.EvaluationRubric)
	require.NotNil(t, card.MessageResults)
	// One of the two populated checks passes.
	assert.Equal(t, 2, card.MessageResults.Denominator)
	assert.Equal(t, 1, card.MessageResults.Numerator)
	assert.Equal(t, 50, card.MessageResults.PIQIScore)
}

func TestRunEvaluateRubricOverride(t *testing.T) {
	t.Setenv("PIQI_REFDATA_DIR", writeRefdataDir(t))
	t.Setenv("PIQI_REFDATA_RUBRIC", "strict")
	msgPath := writeMessageFile(t, `{"messageId":"m-2","rootMnemonic":"Patient","body":{"patientId":"p-2"}}`)

	out, err := runEvaluateForTest(t, []string{msgPath})
	require.NoError(t, err)

	var card scorecard.Scorecard
	require.NoError(t, json.Unmarshal([]byte(out), &card))
	assert.Equal(t, "Strict", card.EvaluationRubric)
	require.NotNil(t, card.MessageResults)
	assert.Equal(t, 100, card.MessageResults.PIQIScore)
	assert.Zero(t, card.MessageResults.CriticalFailureCount)
}

func TestRunEvaluatePDF(t *testing.T) {
	t.Setenv("PIQI_REFDATA_DIR", writeRefdataDir(t))
	msgPath := writeMessageFile(t, `{"messageId":"m-3","rootMnemonic":"Patient","body":{"patientId":"p-3"}}`)

	pdfOut = filepath.Join(t.TempDir(), "card.pdf")
	defer func() { pdfOut = "" }()

	_, err := runEvaluateForTest(t, []string{msgPath})
	require.NoError(t, err)

	info, err := os.Stat(pdfOut)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunEvaluateErrors(t *testing.T) {
	t.Run("missing message file", func(t *testing.T) {
		t.Setenv("PIQI_REFDATA_DIR", writeRefdataDir(t))
		_, err := runEvaluateForTest(t, []string{filepath.Join(t.TempDir(), "absent.json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read message file")
	})

	t.Run("malformed message", func(t *testing.T) {
		t.Setenv("PIQI_REFDATA_DIR", writeRefdataDir(t))
		msgPath := writeMessageFile(t, `{"messageId":`)
		_, err := runEvaluateForTest(t, []string{msgPath})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode message")
	})

	t.Run("empty bundle directory", func(t *testing.T) {
		t.Setenv("PIQI_REFDATA_DIR", t.TempDir())
		msgPath := writeMessageFile(t, `{"messageId":"m-4","rootMnemonic":"Patient","body":{}}`)
		_, err := runEvaluateForTest(t, []string{msgPath})
		require.ErrorIs(t, err, refdata.ErrInvalidReferenceData)
	})
}
