//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package knowledge provides the clinical knowledge collaborator used
// by the plausibility SAMs.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultLanguage  = "en"
	defaultNavigator = "default"
)

// Plausibility is the knowledge service verdict on one observation.
type Plausibility string

const (
	// Plausible means the observation is clinically plausible.
	Plausible Plausibility = "PLAUSIBLE"
	// Implausible means the observation contradicts clinical knowledge.
	Implausible Plausibility = "IMPLAUSIBLE"
	// Unknown means the service cannot judge the observation.
	Unknown Plausibility = "UNKNOWN"
)

// StatusError reports a knowledge service response outside 2xx.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("knowledge %s: server returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to the clinical knowledge service.
type Client struct {
	baseURL    string
	lang       string
	nav        string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	lang       string
	nav        string
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLanguage sets the BCP 47 language tag sent on every call. The tag
// is validated and canonicalized at construction time.
func WithLanguage(tag string) Option {
	return func(o *options) {
		o.lang = tag
	}
}

// WithNavigator sets the knowledge navigator identifier sent on every
// call.
func WithNavigator(nav string) Option {
	return func(o *options) {
		o.nav = nav
	}
}

// NewClient creates a knowledge client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is empty")
	}
	o := options{
		timeout: defaultTimeout,
		lang:    defaultLanguage,
		nav:     defaultNavigator,
	}
	for _, opt := range opts {
		opt(&o)
	}
	tag, err := language.Parse(o.lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language tag %q: %w", o.lang, err)
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		lang:       tag.String(),
		nav:        o.nav,
		httpClient: httpClient,
	}, nil
}

// LabResultQuery carries the inputs of a lab result plausibility check.
type LabResultQuery struct {
	DOB         string // DOB is the patient birth date
	TestCode    string // TestCode identifies the performed test
	ResultValue string // ResultValue is the observed value
	Stamp       string // Stamp is the observation timestamp
}

// LabDeviceQuery carries the inputs of a lab device plausibility check.
type LabDeviceQuery struct {
	TestCode     string // TestCode identifies the performed test
	RefRangeLow  string // RefRangeLow is the reference range lower bound
	RefRangeHigh string // RefRangeHigh is the reference range upper bound
	Unit         string // Unit is the unit of measure
	Stamp        string // Stamp is the observation timestamp
}

// LabResult asks whether an observed lab result is plausible for the
// patient.
func (c *Client) LabResult(ctx context.Context, q LabResultQuery) (Plausibility, error) {
	params := url.Values{}
	params.Set("dob", q.DOB)
	params.Set("testCode", q.TestCode)
	params.Set("resultValue", q.ResultValue)
	params.Set("stamp", q.Stamp)
	return c.getPlausibility(ctx, "lab-result", params)
}

// LabDevice asks whether a lab result's device metadata is plausible.
func (c *Client) LabDevice(ctx context.Context, q LabDeviceQuery) (Plausibility, error) {
	params := url.Values{}
	params.Set("testCode", q.TestCode)
	params.Set("refRangeLow", q.RefRangeLow)
	params.Set("refRangeHigh", q.RefRangeHigh)
	params.Set("unit", q.Unit)
	params.Set("stamp", q.Stamp)
	return c.getPlausibility(ctx, "lab-device", params)
}

// plausibilityResponse is the wire shape of a plausibility answer.
type plausibilityResponse struct {
	Plausibility string `json:"plausibility"`
}

func (c *Client) getPlausibility(ctx context.Context, op string, params url.Values) (Plausibility, error) {
	params.Set("lang", c.lang)
	params.Set("nav", c.nav)
	reqURL := fmt.Sprintf("%s/api/plausibility/%s?%s", c.baseURL, op, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	var parsed plausibilityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	switch p := Plausibility(parsed.Plausibility); p {
	case Plausible, Implausible, Unknown:
		return p, nil
	default:
		return "", fmt.Errorf("unexpected plausibility %q", parsed.Plausibility)
	}
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
