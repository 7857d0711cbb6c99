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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/piqi-framework/piqi-go/evaluation"
	"github.com/piqi-framework/piqi-go/fhir"
	"github.com/piqi-framework/piqi-go/knowledge"
	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/refdata"
	refdatalocal "github.com/piqi-framework/piqi-go/refdata/local"
	"github.com/piqi-framework/piqi-go/scorecard"
	scorecardinmemory "github.com/piqi-framework/piqi-go/scorecard/inmemory"
	scorecardlocal "github.com/piqi-framework/piqi-go/scorecard/local"
	"github.com/piqi-framework/piqi-go/server"
	"github.com/piqi-framework/piqi-go/telemetry/metric"
	"github.com/piqi-framework/piqi-go/telemetry/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation engine behind its HTTP API",
	Long: `Run the PIQI evaluation engine as an HTTP server.

The server loads reference data from the bundle directory, builds the
evaluation engine over it and serves message evaluation, scorecard
retrieval and reference data listings. With --watch the bundle
directory is monitored and the engine is rebuilt whenever documents
change.

Press Ctrl+C to shut down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Bool("watch", false, "watch the bundle directory and reload on changes")
	serveCmd.Flags().String("scorecard-store", "memory", "scorecard store backend (memory or local)")
	serveCmd.Flags().String("scorecard-dir", "", "directory for the local scorecard store")
	serveCmd.Flags().Bool("telemetry", false, "export OTLP traces and metrics")
	serveCmd.Flags().String("telemetry-endpoint", "", "OTLP collector endpoint")
	serveCmd.Flags().String("telemetry-protocol", trace.ProtocolGRPC, "OTLP transport (grpc or http)")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("refdata.watch", serveCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("scorecards.store", serveCmd.Flags().Lookup("scorecard-store"))
	_ = viper.BindPFlag("scorecards.dir", serveCmd.Flags().Lookup("scorecard-dir"))
	_ = viper.BindPFlag("telemetry.enabled", serveCmd.Flags().Lookup("telemetry"))
	_ = viper.BindPFlag("telemetry.endpoint", serveCmd.Flags().Lookup("telemetry-endpoint"))
	_ = viper.BindPFlag("telemetry.protocol", serveCmd.Flags().Lookup("telemetry-protocol"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Logging.Level)

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer stop()
	}

	evalOpts, err := evaluationOptions(cfg)
	if err != nil {
		return err
	}

	// The engine only ever sees immutable index snapshots; the watcher
	// hands each rebuilt snapshot to the server, which swaps engines
	// without dropping in-flight evaluations.
	var (
		watcher *refdatalocal.Watcher
		index   *refdata.Index
		live    atomic.Pointer[server.Server]
	)
	if cfg.RefData.Watch {
		watchOpts := append(refdataOptions(cfg), refdatalocal.WithOnSwap(func(idx *refdata.Index) {
			// A swap can fire before the server exists; the startup
			// snapshot below already carries that index.
			s := live.Load()
			if s == nil {
				return
			}
			if err := s.Reload(idx); err != nil {
				log.Errorf("rebuild evaluation engine over reloaded reference data: %v", err)
			}
		}))
		watcher, err = refdatalocal.NewWatcher(cfg.RefData.Dir, watchOpts...)
		if err != nil {
			return err
		}
		index = watcher.Index()
	} else {
		index, err = refdatalocal.Load(cfg.RefData.Dir, refdataOptions(cfg)...)
		if err != nil {
			return err
		}
	}

	srv, err := server.New(index,
		server.WithScorecardManager(newScorecardStore(cfg)),
		server.WithEvaluationOptions(evalOpts...))
	if err != nil {
		if watcher != nil {
			_ = watcher.Close()
		}
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Warnf("close server: %v", err)
		}
	}()
	if watcher != nil {
		live.Store(srv)
		// Runs before srv.Close, so no reload races the shutdown.
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Warnf("close reference data watcher: %v", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("piqi server listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve on %s: %w", cfg.Server.Addr, err)
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	}

	// A second signal skips the graceful stop.
	go func() {
		<-sigCh
		log.Warnf("second signal, exiting now")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Infof("server stopped")
	return nil
}

// startTelemetry starts the OTLP trace and metric exporters and returns
// a function that stops both.
func startTelemetry(ctx context.Context, cfg *Config) (func(), error) {
	traceOpts := []trace.Option{
		trace.WithProtocol(cfg.Telemetry.Protocol),
		trace.WithServiceName(cfg.Telemetry.ServiceName),
	}
	metricOpts := []metric.Option{
		metric.WithProtocol(cfg.Telemetry.Protocol),
		metric.WithServiceName(cfg.Telemetry.ServiceName),
	}
	if cfg.Telemetry.Endpoint != "" {
		traceOpts = append(traceOpts, trace.WithEndpoint(cfg.Telemetry.Endpoint))
		metricOpts = append(metricOpts, metric.WithEndpoint(cfg.Telemetry.Endpoint))
	}

	stopTrace, err := trace.Start(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("start trace exporter: %w", err)
	}
	stopMetric, err := metric.Start(ctx, metricOpts...)
	if err != nil {
		_ = stopTrace()
		return nil, fmt.Errorf("start metric exporter: %w", err)
	}
	return func() {
		if err := stopMetric(); err != nil {
			log.Warnf("stop metric exporter: %v", err)
		}
		if err := stopTrace(); err != nil {
			log.Warnf("stop trace exporter: %v", err)
		}
	}, nil
}

// evaluationOptions assembles engine options from the configuration:
// collaborator clients when endpoints are set, parallelism when pinned.
func evaluationOptions(cfg *Config) ([]evaluation.Option, error) {
	var opts []evaluation.Option
	if cfg.Evaluation.Parallelism > 0 {
		opts = append(opts, evaluation.WithParallelism(cfg.Evaluation.Parallelism))
	}
	if cfg.Terminology.Endpoint != "" {
		var fhirOpts []fhir.Option
		if cfg.Terminology.Timeout > 0 {
			fhirOpts = append(fhirOpts, fhir.WithTimeout(cfg.Terminology.Timeout))
		}
		client, err := fhir.NewClient(cfg.Terminology.Endpoint, fhirOpts...)
		if err != nil {
			return nil, fmt.Errorf("terminology client: %w", err)
		}
		opts = append(opts, evaluation.WithTerminologyService(client))
	}
	if cfg.Knowledge.Endpoint != "" {
		var knowledgeOpts []knowledge.Option
		if cfg.Knowledge.Timeout > 0 {
			knowledgeOpts = append(knowledgeOpts, knowledge.WithTimeout(cfg.Knowledge.Timeout))
		}
		if cfg.Knowledge.Language != "" {
			knowledgeOpts = append(knowledgeOpts, knowledge.WithLanguage(cfg.Knowledge.Language))
		}
		client, err := knowledge.NewClient(cfg.Knowledge.Endpoint, knowledgeOpts...)
		if err != nil {
			return nil, fmt.Errorf("knowledge client: %w", err)
		}
		opts = append(opts, evaluation.WithKnowledgeService(client))
	}
	return opts, nil
}

// newScorecardStore builds the configured scorecard backend. Validate
// has already vetted the store name.
func newScorecardStore(cfg *Config) scorecard.Manager {
	if cfg.Scorecards.Store == "local" {
		var opts []scorecardlocal.Option
		if cfg.Scorecards.Dir != "" {
			opts = append(opts, scorecardlocal.WithBaseDir(cfg.Scorecards.Dir))
		}
		return scorecardlocal.NewManager(opts...)
	}
	return scorecardinmemory.NewManager()
}

// refdataOptions translates the configuration into bundle load options.
func refdataOptions(cfg *Config) []refdatalocal.Option {
	opts := []refdatalocal.Option{refdatalocal.WithPattern(cfg.RefData.Pattern)}
	if cfg.RefData.Rubric != "" {
		opts = append(opts, refdatalocal.WithIndexOptions(refdata.WithActiveRubric(cfg.RefData.Rubric)))
	}
	if cfg.RefData.Debounce > 0 {
		opts = append(opts, refdatalocal.WithDebounce(cfg.RefData.Debounce))
	}
	return opts
}
