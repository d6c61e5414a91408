package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/aggregator"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/assistant"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/categorize"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/config"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/enricher"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/store"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/writeback"
	"github.com/RobinCoderZhao/newsdesk/pkg/llm"
	"github.com/RobinCoderZhao/newsdesk/pkg/logger"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// app is the wired pipeline shared by every command.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	store      *store.Store
	queue      *writeback.Queue
	aggregator *aggregator.Aggregator
	browser    scraper.Browser
	enricher   *enricher.Enricher
	llm        llm.Client
	assistant  *assistant.Assistant
}

func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log, nil)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	st, err := store.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: st}
	a.queue = writeback.New(st, cfg.Writeback, log)
	a.aggregator = aggregator.New(
		cfg.Sources.Registry(log),
		st,
		a.queue,
		categorize.New(cfg.Categories),
		aggregator.Options{Policy: cfg.Policy, Breaking: cfg.Breaking, Logger: log},
	)
	a.browser = cfg.Enricher.NewBrowser()
	a.enricher = enricher.New(a.browser, cfg.Enricher.Timeout, log)

	if client, err := llm.NewClient(cfg.LLM); err != nil {
		log.Info("assistant disabled", "reason", err)
	} else {
		a.llm = client
		a.assistant = assistant.New(client, st, cfg.Policy, 0, log)
	}
	return a, nil
}

// Close drains pending write-backs before releasing the browser and
// database.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.queue.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain write-back queue: %w", err))
	}
	if err := a.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
