package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"spyosint/internal/aggregator"
	"spyosint/internal/collector"
	"spyosint/internal/config"
	"spyosint/internal/credentials"
	"spyosint/internal/server/handlers"
)

// app shared wiring of the commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client

	// userKeys are managed through the credentials API and the keys command;
	// serverKeys come from the environment and key file.
	userKeys   credentials.Store
	serverKeys *credentials.StaticStore
	keys       *credentials.Chain

	virustotal collector.Adapter
	shodan     collector.Adapter
	registry   *collector.Registry
	openrouter *collector.OpenRouter
	aggregator *aggregator.Aggregator

	checks  map[string]handlers.Check
	closers []func()
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newApp(ctx context.Context, fixtures bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if fixtures {
		cfg.Providers.FixtureMode = true
	}
	cfg.Keys = config.MergeKeys(&cfg.Keys, flagKeys)
	logger := config.SetupLogger(cfg)

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: collector.NewHTTPClient(cfg.Providers.Timeout),
		checks: make(map[string]handlers.Check),
	}

	userKeys, err := credentials.Open(ctx, credentials.Options{
		Backend: cfg.Credentials.Backend,
		Path:    cfg.Credentials.Path,
		Redis: credentials.RedisOptions{
			Addr:     cfg.Credentials.RedisAddr,
			Password: cfg.Credentials.RedisPassword,
			DB:       cfg.Credentials.RedisDB,
		},
	})
	if err != nil {
		return nil, err
	}
	if redis, ok := userKeys.(*credentials.RedisStore); ok {
		a.closers = append(a.closers, func() { redis.Close() })
		a.checks["redis"] = redis.Ping
	}
	a.userKeys = userKeys
	a.serverKeys = credentials.NewStaticStore(cfg.Keys.Secrets())
	a.keys = credentials.NewChain(a.userKeys, a.serverKeys)

	adapters := []collector.Adapter{
		collector.NewVirusTotal(a.client),
		collector.NewShodan(a.client, ""),
		collector.NewWhois(nil, nil),
		collector.NewWayback(a.client, "", 0),
		collector.NewCommonCrawl(a.client, "", cfg.Providers.CrawlLimit),
		collector.NewSocial(a.client, cfg.Providers.SocialRate, collector.FilterPlatforms(cfg.Providers.SocialPlatforms)),
	}
	if cfg.Providers.FixtureMode {
		logger.Warn("Fixture mode enabled, providers answer with canned data")
		adapters = collector.WithFixtures(adapters...)
	}
	a.virustotal = adapters[0]
	a.shodan = adapters[1]
	a.registry = collector.NewRegistry(a.keys, logger, adapters...)

	a.openrouter = collector.NewOpenRouter(a.client, collector.OpenRouterConfig{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		Referer:     cfg.LLM.Referer,
		Title:       cfg.LLM.Title,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	a.aggregator = aggregator.New(aggregator.NewLLMSummarizer(a.openrouter, a.keys), logger)

	return a, nil
}

// addCheck registers a health probe for dependencies that support one
func (a *app) addCheck(name string, dep any) {
	if p, ok := dep.(pinger); ok {
		a.checks[name] = p.Ping
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
