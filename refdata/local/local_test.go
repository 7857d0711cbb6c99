//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/refdata"
)

func writeDoc(t *testing.T, path string, doc *refdata.Bundle) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func modelDoc() *refdata.Bundle {
	return &refdata.Bundle{
		ModelLibrary: []*refdata.Entity{
			{
				Mnemonic: "Patient", Name: "Patient", EntityType: refdata.EntityTypeRoot,
				Children: []*refdata.Entity{
					{Mnemonic: "PatientID", Name: "PatientID", FieldName: "patientId", EntityType: refdata.EntityTypeAttribute},
				},
			},
		},
		SAMLibrary: []*refdata.SAMDescriptor{
			{Mnemonic: "attribute-populated", Name: "Attribute Populated"},
		},
	}
}

func rubricDoc(mnemonic string) *refdata.Bundle {
	return &refdata.Bundle{
		EvaluationProfileLibrary: []*refdata.Rubric{
			{
				Mnemonic: mnemonic,
				EvaluationCriteria: []*refdata.Criterion{
					{Sequence: 1, SamMnemonic: "attribute-populated", EntityMnemonic: "PatientID", ScoringWeight: 1},
				},
			},
		},
	}
}

func TestLoadMergesDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "models", "patient.json"), modelDoc())
	writeDoc(t, filepath.Join(dir, "rubrics", "core.json"), rubricDoc("core"))

	idx, err := Load(dir)
	require.NoError(t, err)
	_, ok := idx.RootEntity("Patient")
	assert.True(t, ok)
	require.NotNil(t, idx.Rubric())
	assert.Equal(t, "core", idx.Rubric().Mnemonic)
}

func TestLoadSelectsActiveRubric(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "patient.json"), modelDoc())
	writeDoc(t, filepath.Join(dir, "rubric-a.json"), rubricDoc("core"))
	writeDoc(t, filepath.Join(dir, "rubric-b.json"), rubricDoc("strict"))

	idx, err := Load(dir, WithIndexOptions(refdata.WithActiveRubric("strict")))
	require.NoError(t, err)
	require.NotNil(t, idx.Rubric())
	assert.Equal(t, "strict", idx.Rubric().Mnemonic)
}

func TestLoadPatternFiltersDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "bundle", "patient.json"), modelDoc())
	writeDoc(t, filepath.Join(dir, "ignored", "core.json"), rubricDoc("core"))

	idx, err := Load(dir, WithPattern("bundle/*.json"))
	require.NoError(t, err)
	_, ok := idx.RootEntity("Patient")
	assert.True(t, ok)
	assert.Nil(t, idx.Rubric())
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "patient.json"), modelDoc())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"modelLibrary":`), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, refdata.ErrInvalidReferenceData)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestLoadRejectsUnknownSAMReference(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "patient.json"), modelDoc())
	writeDoc(t, filepath.Join(dir, "rubric.json"), &refdata.Bundle{
		EvaluationProfileLibrary: []*refdata.Rubric{
			{
				Mnemonic: "core",
				EvaluationCriteria: []*refdata.Criterion{
					{Sequence: 1, SamMnemonic: "ghost", EntityMnemonic: "PatientID"},
				},
			},
		},
	})

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, refdata.ErrInvalidReferenceData)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadWithoutDocuments(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, refdata.ErrInvalidReferenceData)

	_, err = Load(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, refdata.ErrInvalidReferenceData)

	_, err = Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, refdata.ErrInvalidReferenceData)
}
