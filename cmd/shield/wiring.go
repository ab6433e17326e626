package main

import (
	"context"
	"fmt"

	"news-shield/internal/analysis"
	"news-shield/internal/config"
	"news-shield/internal/extract"
	"news-shield/internal/llm"
	"news-shield/internal/pipeline"
	"news-shield/internal/rating"
	"news-shield/internal/report"
	"news-shield/internal/store"
	"news-shield/internal/worker"

	"go.uber.org/zap"
)

// app holds everything a command may need, built from one Config.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	classifier *rating.Classifier
	completer  llm.Completer
	worker     *worker.Worker
	store      store.Store
	hybrid     *store.HybridStore
	reports    *report.Writer
}

func newApp(cfg config.Config, logger *zap.Logger) *app {
	a := &app{
		cfg:        cfg,
		logger:     logger,
		classifier: rating.NewClassifier(cfg.Domains.Trusted, cfg.Domains.Denied, cfg.Domains.Platform),
		reports:    report.NewWriter(cfg.Report.Dir, logger),
	}

	deps := worker.Deps{
		Classifier: a.classifier,
		Clickbait:  rating.NewClickbait(cfg.Clickbait.Triggers),
		Extractor:  extract.New(),
	}
	if cfg.Analysis.Enabled() {
		a.completer = llm.NewChatClient(cfg.Analysis)
		deps.Analyzer = analysis.NewAnalyzer(a.completer, logger.With(zap.String("component", "analysis")))
	} else {
		logger.Warn("Analysis service not configured; AI analysis disabled")
	}
	a.worker = worker.NewWorker(deps, logger.With(zap.String("component", "worker")))
	return a
}

// openStore connects the configured store. clientMode opens Redis only, so the
// Badger directory stays free for a running server.
func (a *app) openStore(ctx context.Context, clientMode bool) error {
	switch a.cfg.Store.Driver {
	case config.StoreHybrid:
		badgerPath := a.cfg.Store.BadgerPath
		if clientMode {
			badgerPath = ""
		}
		st, err := store.NewHybridStore(a.cfg.Store.RedisAddr, badgerPath)
		if err != nil {
			return fmt.Errorf("init hybrid store: %w", err)
		}
		a.store, a.hybrid = st, st
	case config.StoreSQLite:
		st, err := store.OpenSQLite(ctx, a.cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		a.store = st
	case config.StoreNone:
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
	return nil
}

// persister saves every run to the store (if any) and the report files.
func (a *app) persister() pipeline.Persister {
	if a.store == nil {
		return a.reports
	}
	return pipeline.Fanout{a.store, a.reports}
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.worker, a.persister(), a.cfg.Pipeline.Concurrency, a.logger).
		WithClassifier(a.classifier)
}

func (a *app) crossChecker() *analysis.CrossChecker {
	if a.completer == nil {
		return nil
	}
	return analysis.NewCrossChecker(a.completer, a.logger.With(zap.String("component", "crosscheck")))
}

func (a *app) digester() *analysis.Digester {
	if a.completer == nil {
		return nil
	}
	return analysis.NewDigester(a.completer, a.logger.With(zap.String("component", "digest")))
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
