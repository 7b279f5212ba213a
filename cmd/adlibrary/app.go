// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pdiddy/adlibrary/internal/cache"
	"github.com/pdiddy/adlibrary/internal/metrics"
	"github.com/pdiddy/adlibrary/internal/pipeline"
	"github.com/pdiddy/adlibrary/internal/secrets"
	"github.com/pdiddy/adlibrary/internal/source"
	"github.com/pdiddy/adlibrary/pkg/types"
)

// app bundles the pipeline with the resources it holds open.
type app struct {
	pipeline *pipeline.Pipeline
	close    func() error
}

// newApp wires sources, cache, and metrics from cfg. reg may be nil when
// metrics are not exported.
func newApp(cfg types.Config, s secrets.Set, reg prometheus.Registerer, log *zap.Logger) (*app, error) {
	var sources []source.Source
	if cfg.Sources.FixturesDir != "" {
		log.Info("using fixture sources", zap.String("dir", cfg.Sources.FixturesDir))
		sources = source.NewFixtureSources(cfg.Sources.FixturesDir)
	} else {
		token := s.Or(secrets.BackendAPIToken, cfg.Sources.APIToken)
		sources = source.NewHTTPSources(cfg.Sources, token)
	}

	c, closeCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var rec *metrics.Recorder
	if reg != nil {
		rec = metrics.New(reg)
	}

	p := pipeline.New(source.NewCollector(cfg.Sources.Timeout, sources...), pipeline.Options{
		MatchWindow: cfg.Reconcile.MatchWindow,
		CacheTTL:    cfg.Cache.TTL,
		Cache:       c,
		Metrics:     rec,
		Logger:      log,
	})
	return &app{pipeline: p, close: closeCache}, nil
}
