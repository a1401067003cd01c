package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mindburn-Labs/caprouter/pkg/config"
	"github.com/Mindburn-Labs/caprouter/pkg/executor"
	"github.com/Mindburn-Labs/caprouter/pkg/metrics"
	"github.com/Mindburn-Labs/caprouter/pkg/planner"
	"github.com/Mindburn-Labs/caprouter/pkg/policy"
	"github.com/Mindburn-Labs/caprouter/pkg/registry"
	"github.com/Mindburn-Labs/caprouter/pkg/scorer"
	"github.com/Mindburn-Labs/caprouter/pkg/tracestore"
	"go.uber.org/zap"
)

func runServe(stdout, stderr io.Writer) int {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(stderr, "logger init: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	m := metrics.New()

	reg := registry.NewLoader(cfg.RegistryDir, registry.WithMetrics(m.ToolsLoaded, m.ToolLoadErrors))
	if err := reg.Start(); err != nil {
		logger.Warn("initial registry load failed, starting with an empty snapshot", zap.Error(err))
	}

	var policySvc *policy.Service
	if doc, err := policy.LoadDocument(cfg.PolicyFile); err != nil {
		logger.Warn("policy document not loaded, running policy-open", zap.Error(err))
	} else {
		policySvc = policy.NewService(doc, nil)
	}

	traces := tracestore.New(
		tracestore.WithMaxTraces(cfg.TraceMaxEntries),
		tracestore.WithTTL(msToDuration(cfg.TraceTTLMs)),
	)

	var plannerOpts []planner.Option
	if policySvc != nil {
		plannerOpts = append(plannerOpts, planner.WithPolicy(policySvc))
	}
	pl := planner.New(reg, scorer.New(), executor.NewStatic(nil), traces, m, plannerOpts...)

	srv := newServer(reg, pl, m, logger)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server exited", zap.Error(err))
		}
	}()

	appServer := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.routes()}
	go func() {
		logger.Info("caprouter listening", zap.String("addr", cfg.HTTPAddr))
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	_ = appServer.Close()
	_ = metricsServer.Close()
	return 0
}
