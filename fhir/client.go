//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package fhir

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
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "piqi-go-fhir-client"
)

// StatusError reports a terminology server response outside the handled
// status codes. Callers downgrade it to a SAM error.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("fhir %s: server returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to a FHIR terminology server.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
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

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// NewClient creates a terminology client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is empty")
	}
	o := options{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  o.userAgent,
		httpClient: httpClient,
	}, nil
}

// LookupResult is the outcome of one $lookup call.
type LookupResult struct {
	// Found is false when the server answered 400, meaning the code or
	// system is not known. That is a negative answer, not an error.
	Found bool
	// Display is the display text the server returned for the code.
	Display string
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// lookupParameters is the FHIR Parameters resource shape of $lookup.
type lookupParameters struct {
	Parameter []struct {
		Name        string `json:"name"`
		ValueString string `json:"valueString,omitempty"`
	} `json:"parameter"`
}

// LookupCode validates a code against its code system via $lookup. A
// 2xx answer carries the display; 400 means the pair is unknown and
// returns Found false without error; any other status is a StatusError.
func (c *Client) LookupCode(ctx context.Context, code, system string) (*LookupResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("code is empty")
	}
	if strings.TrimSpace(system) == "" {
		return nil, errors.New("system is empty")
	}
	params := url.Values{}
	params.Set("system", system)
	params.Set("code", code)

	status, body, err := c.get(ctx, "/CodeSystem/$lookup", params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest {
		return &LookupResult{Found: false, StatusCode: status}, nil
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "lookup", StatusCode: status, Body: truncate(body)}
	}

	var parsed lookupParameters
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse lookup response: %w", err)
	}
	result := &LookupResult{Found: true, StatusCode: status}
	for _, p := range parsed.Parameter {
		if p.Name == "display" {
			result.Display = p.ValueString
			break
		}
	}
	return result, nil
}

// ValueSetExpansion is the flattened expansion of one value set.
type ValueSetExpansion struct {
	URL      string
	Contains []Coding
}

// ContainsCoding reports whether the expansion holds the given system
// and code. Expansion entries without a system match on code alone.
func (e *ValueSetExpansion) ContainsCoding(system, code string) bool {
	if e == nil {
		return false
	}
	for _, c := range e.Contains {
		if c.Code != code {
			continue
		}
		if c.System == "" || c.System == system {
			return true
		}
	}
	return false
}

// valueSetResource is the FHIR ValueSet resource shape of $expand.
type valueSetResource struct {
	Expansion struct {
		Contains []Coding `json:"contains"`
	} `json:"expansion"`
}

// GetValueSet expands the value set with the given canonical URL. Any
// non-2xx status is a StatusError.
func (c *Client) GetValueSet(ctx context.Context, valueSetURL string) (*ValueSetExpansion, error) {
	if strings.TrimSpace(valueSetURL) == "" {
		return nil, errors.New("value set url is empty")
	}
	params := url.Values{}
	params.Set("url", valueSetURL)

	status, body, err := c.get(ctx, "/ValueSet/$expand", params)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "expand", StatusCode: status, Body: truncate(body)}
	}

	var parsed valueSetResource
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse value set response: %w", err)
	}
	return &ValueSetExpansion{URL: valueSetURL, Contains: parsed.Expansion.Contains}, nil
}

// get performs one GET request and returns status and body. Transport
// failures surface as errors; status handling is left to the caller.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
