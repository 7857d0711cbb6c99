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
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/piqi-framework/piqi-go/evaluation/stats"
	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
)

// ProjectInput carries everything the projection reads. Index is
// optional and only resolves assessment-method display names.
type ProjectInput struct {
	Message     *message.Message
	Rubric      *refdata.Rubric
	Index       *refdata.Index
	Stats       *stats.StatResponse
	ProcessDate time.Time
	Partial     bool
}

// Project fills a scorecard from aggregated statistics. The transform
// is deterministic: identical input yields an identical scorecard.
func Project(in ProjectInput) *Scorecard {
	st := in.Stats
	if st == nil {
		st = stats.NewAggregator().Response()
	}
	sc := &Scorecard{
		EvaluationRubric: in.Rubric.DisplayName(),
		Partial:          in.Partial,
		MessageResults:   scoreSummary(st.ScoringCounts, st.WeightedCounts, st.CriticalFailureCount),
	}
	if in.Message != nil {
		sc.DataProviderID = in.Message.DataProviderID
		sc.DataSourceID = in.Message.DataSourceID
		sc.MessageID = in.Message.MessageID
	}
	if !in.ProcessDate.IsZero() {
		sc.ProcessDate = in.ProcessDate.UTC().Format(time.RFC3339)
	}
	sc.DataClassResults = classResults(st)
	sc.InformationalResults = informationalResults(st, in.Index)
	sc.EvaluationErrors = evaluationErrors(st)
	return sc
}

func scoreSummary(c stats.Counters, w stats.WeightedCounters, critical int) *ScoreSummary {
	return &ScoreSummary{
		Denominator:          c.Processed,
		Numerator:            c.Passed,
		PIQIScore:            percentage(c.Passed, c.Processed),
		WeightedDenominator:  w.Processed,
		WeightedNumerator:    w.Passed,
		WeightedPIQIScore:    weightedPercentage(w.Passed, w.Processed),
		CriticalFailureCount: critical,
	}
}

func classResults(st *stats.StatResponse) []*DataClassResult {
	if len(st.Classes) == 0 {
		return nil
	}
	out := make([]*DataClassResult, 0, len(st.Classes))
	for _, cls := range st.Classes {
		out = append(out, &DataClassResult{
			DataClassName: Prettify(cls.ClassMnemonic),
			InstanceCount: cls.InstanceCount,
			ScoreSummary:  *scoreSummary(cls.Scoring, cls.Weighted, cls.CriticalFailureCount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DataClassName < out[j].DataClassName
	})
	return out
}

func informationalResults(st *stats.StatResponse, index *refdata.Index) []*InformationalClassResult {
	if len(st.Informational) == 0 {
		return nil
	}
	groups := make(map[string][]*InformationalEvaluation)
	for _, entry := range st.Informational {
		groups[entry.ClassMnemonic] = append(groups[entry.ClassMnemonic], &InformationalEvaluation{
			EntityName:     Prettify(entry.EntityMnemonic),
			EvaluationName: evaluationName(entry, index),
			InstanceCount:  entry.Counts.Total,
			Denominator:    entry.Counts.Processed,
			Numerator:      entry.Counts.Passed,
		})
	}
	out := make([]*InformationalClassResult, 0, len(groups))
	for class, evals := range groups {
		sort.Slice(evals, func(i, j int) bool {
			if evals[i].EntityName != evals[j].EntityName {
				return evals[i].EntityName < evals[j].EntityName
			}
			return evals[i].EvaluationName < evals[j].EvaluationName
		})
		out = append(out, &InformationalClassResult{
			DataClassName: Prettify(class),
			Evaluations:   evals,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DataClassName < out[j].DataClassName
	})
	return out
}

// evaluationName prefers the rubric's name override, then the SAM
// library display name, then the bare mnemonic.
func evaluationName(entry *stats.InformationalResult, index *refdata.Index) string {
	if entry.SamName != "" {
		return entry.SamName
	}
	if index != nil {
		if d, ok := index.SAMDescriptor(entry.SamMnemonic); ok {
			return d.DisplayName()
		}
	}
	return entry.SamMnemonic
}

func evaluationErrors(st *stats.StatResponse) []*EvaluationError {
	if len(st.Errors) == 0 {
		return nil
	}
	out := make([]*EvaluationError, 0, len(st.Errors))
	for _, e := range st.Errors {
		out = append(out, &EvaluationError{
			ItemKey:     e.ItemKey,
			SamMnemonic: e.SamMnemonic,
			Message:     e.Message,
		})
	}
	return out
}

// percentage is the integer score trunc(num/den*100). A zero
// denominator scores zero rather than dividing.
func percentage(num, den int) int {
	if den == 0 {
		return 0
	}
	return num * 100 / den
}

func weightedPercentage(num, den float64) int {
	if den == 0 {
		return 0
	}
	return int(num / den * 100)
}

// Prettify renders a mnemonic for display: a space goes in before each
// upper-case letter past the first position and the first character is
// upper-cased, so "labResults" becomes "Lab Results". Existing spaces
// are preserved without doubling.
func Prettify(mnemonic string) string {
	if mnemonic == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(mnemonic) + 4)
	for i, r := range mnemonic {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r) && mnemonic[i-1] != ' ':
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
