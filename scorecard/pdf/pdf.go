//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package pdf renders scorecards as printable PDF reports.
package pdf

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/piqi-framework/piqi-go/scorecard"
)

// Renderer turns scorecards into A4 portrait PDF reports.
type Renderer struct{}

// NewRenderer creates a scorecard PDF renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes the scorecard as a PDF document.
func (r *Renderer) Render(card *scorecard.Scorecard, w io.Writer) error {
	if card == nil {
		return errors.New("scorecard is nil")
	}
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("PIQI Scorecard "+card.MessageID, false)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	r.header(doc, card)
	r.messageResults(doc, card)
	r.classResults(doc, card.DataClassResults)
	r.informational(doc, card.InformationalResults)
	r.evaluationErrors(doc, card.EvaluationErrors)

	return doc.Output(w)
}

func (r *Renderer) header(doc *fpdf.Fpdf, card *scorecard.Scorecard) {
	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, "Data Quality Scorecard")
	doc.Ln(12)

	doc.SetTextColor(0, 0, 0)
	for _, line := range []struct{ label, value string }{
		{"Message", card.MessageID},
		{"Provider", card.DataProviderID},
		{"Source", card.DataSourceID},
		{"Rubric", card.EvaluationRubric},
		{"Processed", card.ProcessDate},
	} {
		if line.value == "" {
			continue
		}
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(30, 6, line.label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 6, line.value, "", 1, "L", false, 0, "")
	}
	if card.Partial {
		doc.SetFont("Helvetica", "B", 10)
		doc.SetTextColor(200, 30, 30)
		doc.CellFormat(0, 8, "Partial result: the evaluation was cancelled before completion.", "", 1, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
	}
	doc.Ln(4)
}

func (r *Renderer) messageResults(doc *fpdf.Fpdf, card *scorecard.Scorecard) {
	res := card.MessageResults
	if res == nil {
		return
	}
	doc.SetFont("Helvetica", "B", 28)
	doc.Cell(0, 14, fmt.Sprintf("PIQI Score: %d", res.PIQIScore))
	doc.Ln(16)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("%d of %d evaluations passed (weighted score %d)",
		res.Numerator, res.Denominator, res.WeightedPIQIScore), "", 1, "L", false, 0, "")
	if res.CriticalFailureCount > 0 {
		doc.SetTextColor(200, 30, 30)
		doc.CellFormat(0, 6, fmt.Sprintf("%d critical failure(s)", res.CriticalFailureCount), "", 1, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
	}
	doc.Ln(6)
}

func (r *Renderer) classResults(doc *fpdf.Fpdf, classes []*scorecard.DataClassResult) {
	if len(classes) == 0 {
		return
	}
	r.sectionTitle(doc, "Data Classes")

	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	headers := []struct {
		label string
		width float64
	}{
		{"Data Class", 60},
		{"Instances", 25},
		{"Passed", 25},
		{"Processed", 25},
		{"Score", 20},
		{"Critical", 25},
	}
	for _, h := range headers {
		doc.CellFormat(h.width, 7, h.label, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	for _, cls := range classes {
		doc.CellFormat(60, 6, cls.DataClassName, "1", 0, "L", false, 0, "")
		doc.CellFormat(25, 6, fmt.Sprintf("%d", cls.InstanceCount), "1", 0, "R", false, 0, "")
		doc.CellFormat(25, 6, fmt.Sprintf("%d", cls.Numerator), "1", 0, "R", false, 0, "")
		doc.CellFormat(25, 6, fmt.Sprintf("%d", cls.Denominator), "1", 0, "R", false, 0, "")
		doc.CellFormat(20, 6, fmt.Sprintf("%d", cls.PIQIScore), "1", 0, "R", false, 0, "")
		doc.CellFormat(25, 6, fmt.Sprintf("%d", cls.CriticalFailureCount), "1", 1, "R", false, 0, "")
	}
	doc.Ln(6)
}

func (r *Renderer) informational(doc *fpdf.Fpdf, groups []*scorecard.InformationalClassResult) {
	if len(groups) == 0 {
		return
	}
	r.sectionTitle(doc, "Informational Evaluations")

	for _, group := range groups {
		name := group.DataClassName
		if name == "" {
			name = "Message"
		}
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(0, 6, name, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		for _, eval := range group.Evaluations {
			doc.CellFormat(60, 6, eval.EntityName, "", 0, "L", false, 0, "")
			doc.CellFormat(70, 6, eval.EvaluationName, "", 0, "L", false, 0, "")
			doc.CellFormat(0, 6, fmt.Sprintf("%d / %d passed", eval.Numerator, eval.Denominator), "", 1, "L", false, 0, "")
		}
		doc.Ln(2)
	}
	doc.Ln(4)
}

func (r *Renderer) evaluationErrors(doc *fpdf.Fpdf, errs []*scorecard.EvaluationError) {
	if len(errs) == 0 {
		return
	}
	r.sectionTitle(doc, "Evaluation Errors")

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(200, 30, 30)
	for _, e := range errs {
		doc.MultiCell(0, 5, fmt.Sprintf("%s (%s): %s", e.ItemKey, e.SamMnemonic, e.Message), "", "L", false)
		doc.Ln(1)
	}
	doc.SetTextColor(0, 0, 0)
}

func (r *Renderer) sectionTitle(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}
