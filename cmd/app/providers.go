package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm"
	"github.com/yanqian/longtext-summarizer/internal/infra/tokens"
)

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return llm.SummaryConfig(cfg)
}

func provideBackends(cfg *config.Config, logger *slog.Logger) (summarizer.Backends, error) {
	return llm.NewBackends(cfg, logger)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) summarizer.TokenCounter {
	return tokens.NewCounter(cfg.LLM.Encoding, logger)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
