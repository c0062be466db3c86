package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"metaseek/api"
	"metaseek/client"
	"metaseek/config"
	"metaseek/engines"
	"metaseek/enrich"
	"metaseek/pkg/tor"
	"metaseek/search"

	"go.uber.org/zap"
)

// Rotate the Tor circuit after this many proxied requests.
const torRotateAfter = 25

func main() {
	// =========
	// Profiling
	// =========
	go func() {
		http.ListenAndServe(":6060", nil)
	}()

	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// HTTP (direct or Tor)
	// =========
	probeClient := &http.Client{Timeout: 30 * time.Second}
	scrapeClient := &http.Client{}
	if cfg.TorProxyURL != "" {
		torClient, err := tor.NewTorClient(cfg.TorProxyURL, cfg.TorControlAddr, torRotateAfter, logger)
		if err != nil {
			logger.Fatal("failed to create tor client", zap.Error(err))
		}
		probeClient = &http.Client{Timeout: 30 * time.Second, Transport: torClient.Transport()}
		scrapeClient = &http.Client{Transport: torClient.Transport()}
		logger.Info("routing outbound traffic through tor", zap.String("proxy", cfg.TorProxyURL))
	}

	// =========
	// Aggregator client
	// =========
	searxClient := client.NewSearxClient(cfg.SearxngURL, probeClient)

	// =========
	// Engine registry
	// =========
	registry := engines.NewRegistry()
	if cfg.RedditClientID != "" && cfg.RedditClientSecret != "" {
		tokens := engines.NewTokenProvider(cfg.RedditClientID, cfg.RedditClientSecret)
		registry.Register("reddit api", engines.NewRedditAPIEngine(tokens, logger))
	}
	if !cfg.RewriteRedditGoogle {
		registry.Register("reddit", engines.NewRedditEngine())
	}
	if cfg.VectorSearchURL != "" {
		if len(cfg.VectorSearchSources) == 0 {
			registry.Register("sources", engines.NewSourcesEngine(cfg.VectorSearchURL, ""))
		}
		for _, source := range cfg.VectorSearchSources {
			registry.Register(source, engines.NewSourcesEngine(cfg.VectorSearchURL, source))
		}
	}

	// =========
	// Engine selector
	// =========
	categories := search.DefaultCategories()
	if cfg.EngineTablePath != "" {
		categories, err = search.LoadCategories(cfg.EngineTablePath)
		if err != nil {
			logger.Fatal("failed to load category table", zap.Error(err))
		}
		logger.Info("loaded category table",
			zap.String("path", cfg.EngineTablePath),
			zap.Int("categories", len(categories)),
		)
	}
	selector := search.NewSelector(categories)

	// =========
	// Orchestrator
	// =========
	orchestrator := search.NewOrchestrator(searxClient, selector, registry,
		cfg.MaxSearchRetries, cfg.RewriteRedditGoogle, logger)

	// =========
	// Scraper
	// =========
	var cache *enrich.PageCache
	if cfg.CachePath != "" {
		cache = enrich.NewPageCache(cfg.CachePath, 0)
		if err := cache.Init(); err != nil {
			logger.Fatal("failed to init page cache", zap.Error(err))
		}
		defer cache.Close()
	}
	scraper := enrich.NewScraper(&enrich.Config{
		UserAgent: cfg.ScraperUserAgent,
		Timeout:   cfg.ScraperTimeout,
		MaxLength: cfg.ScraperMaxLength,
	}, scrapeClient, cache, logger)

	// =========
	// API server
	// =========
	assembler := search.NewAssembler(scraper, logger)
	transcripts := client.NewTranscriptClient()
	handler := api.NewHandler(orchestrator, assembler, transcripts, cfg.EnableAntiCaptcha, logger)
	server := api.NewServer(handler, strconv.Itoa(cfg.AppPort), logger)

	if err := server.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
