//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package fhir provides the FHIR terminology collaborator: coded value
// types and a client for code lookup and value set expansion.
package fhir

import (
	"encoding/json"
	"strings"
)

// Coding is one coded value from a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`  // System is the canonical URI of the code system
	Code    string `json:"code,omitempty"`    // Code is the symbol within the system
	Display string `json:"display,omitempty"` // Display is the human readable rendering
}

// CodeableConcept is a concept that may be coded in several systems.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"` // Coding holds the codings, most specific first
	Text   string   `json:"text,omitempty"`   // Text is the free-text rendering
}

// HasCodings reports whether the concept carries at least one coding.
func (c *CodeableConcept) HasCodings() bool {
	return c != nil && len(c.Coding) > 0
}

// ParseCodeableConcept reads a codeable concept from raw message text.
// It accepts the full FHIR shape, a bare coding object, and a plain
// string (text only, no codings). Empty and null text parse to nil
// without error; anything else unparseable is an error.
func ParseCodeableConcept(text string) (*CodeableConcept, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var concept CodeableConcept
	if err := json.Unmarshal([]byte(trimmed), &concept); err == nil {
		if len(concept.Coding) > 0 {
			return &concept, nil
		}
		// A bare coding object parses into CodeableConcept with no
		// codings; retry as Coding before settling for text only.
		var single Coding
		if err := json.Unmarshal([]byte(trimmed), &single); err == nil && single.Code != "" {
			return &CodeableConcept{Coding: []Coding{single}, Text: single.Display}, nil
		}
		return &concept, nil
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return &CodeableConcept{Text: s}, nil
	}
	return nil, errNotAConcept(trimmed)
}

func errNotAConcept(text string) error {
	const max = 64
	if len(text) > max {
		text = text[:max] + "..."
	}
	return &ParseError{Text: text}
}

// ParseError reports message text that is not a codeable concept.
type ParseError struct {
	Text string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return "not a codeable concept: " + e.Text
}
