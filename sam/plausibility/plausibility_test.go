//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package plausibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piqi-framework/piqi-go/evaluation/evaltree"
	"github.com/piqi-framework/piqi-go/knowledge"
	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/sam"
)

// stubService records the queries it receives and answers with a
// scripted verdict.
type stubService struct {
	verdict    knowledge.Plausibility
	err        error
	lastResult *knowledge.LabResultQuery
	lastDevice *knowledge.LabDeviceQuery
}

func (s *stubService) LabResult(_ context.Context, q knowledge.LabResultQuery) (knowledge.Plausibility, error) {
	s.lastResult = &q
	return s.verdict, s.err
}

func (s *stubService) LabDevice(_ context.Context, q knowledge.LabDeviceQuery) (knowledge.Plausibility, error) {
	s.lastDevice = &q
	return s.verdict, s.err
}

// labElement builds a hand-wired record slice: a patient root carrying
// a birth date, one lab result element underneath it, and the given
// attribute values on the element. Empty values leave the attribute
// without message data.
func labElement(attrs map[string]string) *evaltree.Item {
	root := &evaltree.Item{
		Key:          "Patient",
		Entity:       &refdata.Entity{Mnemonic: "Patient", Name: "Patient", EntityType: refdata.EntityTypeRoot},
		MessageItem:  &message.Item{Key: "Patient"},
		ItemType:     refdata.EntityTypeRoot,
		RootMnemonic: "Patient",
	}
	dob := &evaltree.Item{
		Key:          "Patient.BirthDate",
		Entity:       &refdata.Entity{Mnemonic: "BirthDate", Name: "Birth Date", EntityType: refdata.EntityTypeAttribute},
		MessageItem:  &message.Item{Key: "Patient.BirthDate", MessageText: `"1980-02-14"`},
		Parent:       root,
		ItemType:     refdata.EntityTypeAttribute,
		RootMnemonic: "Patient",
	}
	elem := &evaltree.Item{
		Key:             "Patient.LabResults.LabResult.1",
		Entity:          &refdata.Entity{Mnemonic: "LabResult", Name: "Lab Result", EntityType: refdata.EntityTypeElement},
		MessageItem:     &message.Item{Key: "Patient.LabResults.LabResult.1"},
		Parent:          root,
		ItemType:        refdata.EntityTypeElement,
		RootMnemonic:    "Patient",
		ClassMnemonic:   "LabResults",
		ElementMnemonic: "LabResult",
		ElementSequence: 1,
	}
	root.Children = append(root.Children, dob, elem)
	for _, mnemonic := range []string{"TestCode", "ResultValue", "Units", "RefLow", "RefHigh", "Collected"} {
		attr := &evaltree.Item{
			Key:             elem.Key + "." + mnemonic,
			Entity:          &refdata.Entity{Mnemonic: mnemonic, Name: mnemonic, EntityType: refdata.EntityTypeAttribute},
			Parent:          elem,
			ItemType:        refdata.EntityTypeAttribute,
			RootMnemonic:    "Patient",
			ClassMnemonic:   "LabResults",
			ElementMnemonic: "LabResult",
			ElementSequence: 1,
		}
		if text, ok := attrs[mnemonic]; ok && text != "" {
			attr.MessageItem = &message.Item{Key: attr.Key, MessageText: text}
		}
		elem.Children = append(elem.Children, attr)
	}
	return elem
}

func resultParams() refdata.Parameters {
	return refdata.Parameters{
		{Name: ParamTestCode, Value: "TestCode"},
		{Name: ParamResultValue, Value: "ResultValue"},
		{Name: ParamStamp, Value: "Collected"},
		{Name: ParamDOB, Value: "BirthDate"},
	}
}

func deviceParams() refdata.Parameters {
	return refdata.Parameters{
		{Name: ParamTestCode, Value: "TestCode"},
		{Name: ParamRefRangeLow, Value: "RefLow"},
		{Name: ParamRefRangeHigh, Value: "RefHigh"},
		{Name: ParamUnit, Value: "Units"},
		{Name: ParamStamp, Value: "Collected"},
	}
}

func TestLabResultPlausibleResolvesInputs(t *testing.T) {
	svc := &stubService{verdict: knowledge.Plausible}
	s := NewLabResultPlausible(svc)
	assert.Equal(t, MnemonicLabResultPlausible, s.Mnemonic())

	elem := labElement(map[string]string{
		"TestCode":    `{"coding":[{"system":"http://loinc.org","code":"718-7"}]}`,
		"ResultValue": `13.2`,
		"Collected":   `"2026-01-03T08:15:00Z"`,
	})
	resp, err := s.Evaluate(context.Background(), elem, resultParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateSucceeded, resp.State)

	require.NotNil(t, svc.lastResult)
	assert.Equal(t, "718-7", svc.lastResult.TestCode)
	assert.Equal(t, "13.2", svc.lastResult.ResultValue)
	assert.Equal(t, "2026-01-03T08:15:00Z", svc.lastResult.Stamp)
	// The birth date lives on the patient root, outside the element.
	assert.Equal(t, "1980-02-14", svc.lastResult.DOB)
}

func TestLabResultPlausibleVerdicts(t *testing.T) {
	elem := labElement(map[string]string{
		"TestCode":    `"718-7"`,
		"ResultValue": `13.2`,
	})
	tests := []struct {
		verdict knowledge.Plausibility
		want    sam.State
	}{
		{knowledge.Plausible, sam.StateSucceeded},
		{knowledge.Implausible, sam.StateFailed},
		{knowledge.Unknown, sam.StateSkipped},
	}
	for _, tt := range tests {
		s := NewLabResultPlausible(&stubService{verdict: tt.verdict})
		resp, err := s.Evaluate(context.Background(), elem, resultParams())
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.State, "verdict %s", tt.verdict)
	}
}

func TestLabResultPlausibleSkipsWithoutRequiredInputs(t *testing.T) {
	svc := &stubService{verdict: knowledge.Plausible}
	s := NewLabResultPlausible(svc)

	elem := labElement(map[string]string{"TestCode": `"718-7"`})
	resp, err := s.Evaluate(context.Background(), elem, resultParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateSkipped, resp.State)
	assert.Nil(t, svc.lastResult, "service must not be called without inputs")
}

func TestLabResultPlausiblePropagatesServiceErrors(t *testing.T) {
	svc := &stubService{err: errors.New("connection reset")}
	s := NewLabResultPlausible(svc)

	elem := labElement(map[string]string{
		"TestCode":    `"718-7"`,
		"ResultValue": `13.2`,
	})
	_, err := s.Evaluate(context.Background(), elem, resultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLabResultPlausibleWithoutService(t *testing.T) {
	s := NewLabResultPlausible(nil)
	resp, err := s.Evaluate(context.Background(), labElement(nil), resultParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateErrored, resp.State)
}

func TestLabDevicePlausibleResolvesInputs(t *testing.T) {
	svc := &stubService{verdict: knowledge.Plausible}
	s := NewLabDevicePlausible(svc)
	assert.Equal(t, MnemonicLabDevicePlausible, s.Mnemonic())

	elem := labElement(map[string]string{
		"TestCode": `{"coding":[{"system":"http://loinc.org","code":"718-7"}]}`,
		"Units":    `"g/dL"`,
		"RefLow":   `12.0`,
		"RefHigh":  `17.5`,
	})
	resp, err := s.Evaluate(context.Background(), elem, deviceParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateSucceeded, resp.State)

	require.NotNil(t, svc.lastDevice)
	assert.Equal(t, "718-7", svc.lastDevice.TestCode)
	assert.Equal(t, "g/dL", svc.lastDevice.Unit)
	assert.Equal(t, "12.0", svc.lastDevice.RefRangeLow)
	assert.Equal(t, "17.5", svc.lastDevice.RefRangeHigh)
}

func TestLabDevicePlausibleImplausibleFails(t *testing.T) {
	s := NewLabDevicePlausible(&stubService{verdict: knowledge.Implausible})
	elem := labElement(map[string]string{
		"TestCode": `"718-7"`,
		"Units":    `"mmol/L"`,
	})
	resp, err := s.Evaluate(context.Background(), elem, deviceParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateFailed, resp.State)
	assert.Contains(t, resp.FailReason, "device metadata")
}

func TestLabDevicePlausibleSkipsWithoutRequiredInputs(t *testing.T) {
	svc := &stubService{verdict: knowledge.Plausible}
	s := NewLabDevicePlausible(svc)

	elem := labElement(map[string]string{"Units": `"g/dL"`})
	resp, err := s.Evaluate(context.Background(), elem, deviceParams())
	require.NoError(t, err)
	assert.Equal(t, sam.StateSkipped, resp.State)
	assert.Nil(t, svc.lastDevice)
}

func TestFindInputPrefersSubtree(t *testing.T) {
	elem := labElement(map[string]string{"TestCode": `"local"`})
	// A parameter naming an element attribute resolves inside the
	// element even though the search could continue to the root.
	it := findInput(elem, refdata.Parameters{{Name: ParamTestCode, Value: "TestCode"}}, ParamTestCode)
	require.NotNil(t, it)
	assert.Equal(t, "Patient.LabResults.LabResult.1.TestCode", it.Key)

	// Root-level entities stay reachable from the element.
	it = findInput(elem, refdata.Parameters{{Name: ParamDOB, Value: "BirthDate"}}, ParamDOB)
	require.NotNil(t, it)
	assert.Equal(t, "Patient.BirthDate", it.Key)
}

func TestScalarValueShapes(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`"13.2"`, "13.2"},
		{`13.2`, "13.2"},
		{`"  padded  "`, "padded"},
		{`null`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		it := &evaltree.Item{}
		if tt.text != "" {
			it.MessageItem = &message.Item{MessageText: tt.text}
		}
		assert.Equal(t, tt.want, scalarValue(it), "text %q", tt.text)
	}
	assert.Empty(t, scalarValue(nil))
}

func TestCodeValueFallsBackToScalar(t *testing.T) {
	it := &evaltree.Item{MessageItem: &message.Item{MessageText: `"718-7"`}}
	assert.Equal(t, "718-7", codeValue(it))

	it = &evaltree.Item{MessageItem: &message.Item{MessageText: `{"coding":[{"code":"8480-6"},{"code":"other"}]}`}}
	assert.Equal(t, "8480-6", codeValue(it))
}
