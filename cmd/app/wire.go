//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/longtext-summarizer/internal/bootstrap"
	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
	httpiface "github.com/yanqian/longtext-summarizer/internal/interface/http"
	"github.com/yanqian/longtext-summarizer/pkg/logger"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideSummaryConfig,
		provideBackends,
		provideTokenCounter,
		provideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.NewPipelineMetrics,
		wire.Bind(new(summarizer.MetricsRecorder), new(*metrics.PipelineMetrics)),
		summarizer.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
