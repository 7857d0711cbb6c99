//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the evaluation pipeline over HTTP: message
// evaluation, scorecard retrieval, and reference data listings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/piqi-framework/piqi-go/evaluation"
	"github.com/piqi-framework/piqi-go/evaluation/scheduler"
	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/message"
	"github.com/piqi-framework/piqi-go/refdata"
	"github.com/piqi-framework/piqi-go/scorecard"
	scorecardinmemory "github.com/piqi-framework/piqi-go/scorecard/inmemory"
)

// Server is the HTTP front end of the evaluation engine. It owns the
// engine it serves and can swap it for one built over fresh reference
// data without dropping in-flight requests.
type Server struct {
	router *mux.Router

	mu    sync.RWMutex
	index *refdata.Index
	eval  evaluation.Evaluator

	scorecards scorecard.Manager
	evalOpts   []evaluation.Option
}

// Option configures the server.
type Option func(*Server)

// WithScorecardManager overrides the default in-memory scorecard store.
// The same manager backs both evaluation and the scorecard routes.
func WithScorecardManager(m scorecard.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.scorecards = m
		}
	}
}

// WithEvaluationOptions forwards options to the evaluation engine, for
// example terminology or plausibility collaborators and parallelism.
func WithEvaluationOptions(opt ...evaluation.Option) Option {
	return func(s *Server) {
		s.evalOpts = append(s.evalOpts, opt...)
	}
}

// New creates a server over the given reference data index. The
// behaviour can be tweaked via functional options.
func New(index *refdata.Index, opts ...Option) (*Server, error) {
	s := &Server{
		router:     mux.NewRouter(),
		scorecards: scorecardinmemory.NewManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	eval, err := s.buildEngine(index)
	if err != nil {
		return nil, err
	}
	s.index = index
	s.eval = eval

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s, nil
}

// buildEngine constructs an engine over idx that saves into the shared
// scorecard manager. The manager option goes last so it wins over any
// manager smuggled in through WithEvaluationOptions.
func (s *Server) buildEngine(idx *refdata.Index) (evaluation.Evaluator, error) {
	opts := make([]evaluation.Option, 0, len(s.evalOpts)+1)
	opts = append(opts, s.evalOpts...)
	opts = append(opts, evaluation.WithScorecardManager(s.scorecards))
	eval, err := evaluation.New(idx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build evaluation engine: %w", err)
	}
	return eval, nil
}

// Reload swaps in a new reference data index, rebuilding the engine
// over it. Requests already running finish on the old engine before it
// is closed, so a reload never tears an evaluation. Reloading a closed
// server is an error.
func (s *Server) Reload(index *refdata.Index) error {
	eval, err := s.buildEngine(index)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.eval == nil {
		s.mu.Unlock()
		_ = eval.Close()
		return errors.New("server is closed")
	}
	old := s.eval
	s.index = index
	s.eval = eval
	if cerr := old.Close(); cerr != nil {
		log.Warnf("close replaced evaluation engine: %v", cerr)
	}
	s.mu.Unlock()
	log.Infof("evaluation engine reloaded over new reference data")
	return nil
}

// Close releases the engine and the scorecard manager.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var overallErr error
	if s.eval != nil {
		if err := s.eval.Close(); err != nil {
			overallErr = errors.Join(overallErr, fmt.Errorf("close evaluation engine: %w", err))
		}
		s.eval = nil
	}
	if s.scorecards != nil {
		if err := s.scorecards.Close(); err != nil {
			overallErr = errors.Join(overallErr, fmt.Errorf("close scorecard manager: %w", err))
		}
	}
	return overallErr
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

// evaluate runs one message through the current engine. The read lock
// spans the run so Reload cannot close the engine under it.
func (s *Server) evaluate(ctx context.Context, msg *message.Message) (*scorecard.Scorecard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.eval == nil {
		return nil, errors.New("server is closed")
	}
	return s.eval.Evaluate(ctx, msg)
}

// currentIndex returns the index serving requests. An index is
// immutable once built, so callers may read it after the lock drops.
func (s *Server) currentIndex() *refdata.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// registerRoutes sets up the REST endpoints.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Evaluation API.
	s.router.HandleFunc("/api/v1/evaluate", s.handleEvaluate).Methods(http.MethodPost)

	// Scorecard APIs.
	s.router.HandleFunc("/api/v1/scorecards", s.handleListScorecards).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/scorecards/{scorecardId}", s.handleGetScorecard).Methods(http.MethodGet)

	// Reference data APIs.
	s.router.HandleFunc("/api/v1/reference/rubrics", s.handleListRubrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/reference/sams", s.handleListSAMs).Methods(http.MethodGet)

	// OPTIONS handler to allow CORS pre-flight.
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/v1/evaluate", preflight).Methods(http.MethodOptions)
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "serving"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleEvaluate called: path=%s", r.URL.Path)
	var msg message.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("decode message: %v", err), http.StatusBadRequest)
		return
	}
	card, err := s.evaluate(r.Context(), &msg)
	if err != nil {
		http.Error(w, err.Error(), evaluateStatus(err))
		return
	}
	s.writeJSON(w, card)
}

// evaluateStatus maps pipeline errors onto HTTP statuses: invalid
// message or rubric 400, invalid reference data 422, anything else 500.
func evaluateStatus(err error) int {
	switch {
	case errors.Is(err, message.ErrInvalidMessage), errors.Is(err, scheduler.ErrInvalidRubric):
		return http.StatusBadRequest
	case errors.Is(err, refdata.ErrInvalidReferenceData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListScorecards(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleListScorecards called: path=%s", r.URL.Path)
	cards, err := s.scorecards.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if cards == nil {
		cards = []*scorecard.Scorecard{}
	}
	s.writeJSON(w, cards)
}

func (s *Server) handleGetScorecard(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleGetScorecard called: path=%s", r.URL.Path)
	vars := mux.Vars(r)
	card, err := s.scorecards.Get(r.Context(), vars["scorecardId"])
	if err != nil {
		if errors.Is(err, scorecard.ErrNotFound) {
			http.Error(w, "Scorecard not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, card)
}

// rubricInfo is the listing shape for a rubric, omitting its criteria.
type rubricInfo struct {
	Mnemonic      string `json:"mnemonic"`
	Name          string `json:"name,omitempty"`
	Active        bool   `json:"active"`
	CriteriaCount int    `json:"criteriaCount"`
}

func (s *Server) handleListRubrics(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleListRubrics called: path=%s", r.URL.Path)
	idx := s.currentIndex()
	rubrics := idx.Rubrics()
	sort.Slice(rubrics, func(i, j int) bool { return rubrics[i].Mnemonic < rubrics[j].Mnemonic })
	active := idx.Rubric()
	infos := make([]rubricInfo, 0, len(rubrics))
	for _, rb := range rubrics {
		infos = append(infos, rubricInfo{
			Mnemonic:      rb.Mnemonic,
			Name:          rb.Name,
			Active:        active != nil && active.Mnemonic == rb.Mnemonic,
			CriteriaCount: len(rb.EvaluationCriteria),
		})
	}
	s.writeJSON(w, infos)
}

func (s *Server) handleListSAMs(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleListSAMs called: path=%s", r.URL.Path)
	idx := s.currentIndex()
	descriptors := idx.SAMDescriptors()
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Mnemonic < descriptors[j].Mnemonic })
	s.writeJSON(w, descriptors)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
