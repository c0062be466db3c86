package config

import (
	"testing"
	"time"
)

func clearOptional(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"APP_PORT", "MAX_SEARCH_RETRIES", "ENABLE_ANTI_CAPTCHA",
		"SCRAPER_TIMEOUT_SECONDS", "SCRAPER_MAX_LENGTH", "SCRAPER_USER_AGENT",
		"CACHE_PATH", "REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET",
		"REDDIT_REWRITE_GOOGLE", "VECTOR_SEARCH_URL", "VECTOR_SEARCH_SOURCES",
		"TOR_PROXY_URL", "TOR_CONTROL_ADDR", "ENGINE_TABLE_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearOptional(t)
	t.Setenv("SEARXNG_URL", "http://localhost:8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.AppPort != 8013 {
		t.Errorf("AppPort = %d", cfg.AppPort)
	}
	if cfg.SearxngURL != "http://localhost:8080" {
		t.Errorf("SearxngURL = %q", cfg.SearxngURL)
	}
	if cfg.MaxSearchRetries != 3 {
		t.Errorf("MaxSearchRetries = %d", cfg.MaxSearchRetries)
	}
	if !cfg.EnableAntiCaptcha {
		t.Error("EnableAntiCaptcha should default to true")
	}
	if cfg.ScraperTimeout != 10*time.Second {
		t.Errorf("ScraperTimeout = %v", cfg.ScraperTimeout)
	}
	if cfg.ScraperMaxLength != 10000 {
		t.Errorf("ScraperMaxLength = %d", cfg.ScraperMaxLength)
	}
	if cfg.ScraperUserAgent != "Mozilla/5.0 (compatible; TavilyBot/1.0)" {
		t.Errorf("ScraperUserAgent = %q", cfg.ScraperUserAgent)
	}
	if !cfg.RewriteRedditGoogle {
		t.Error("RewriteRedditGoogle should default to true")
	}
	if cfg.CachePath != "" || cfg.TorProxyURL != "" || cfg.VectorSearchURL != "" {
		t.Error("optional settings should default to empty")
	}
	if cfg.VectorSearchSources != nil {
		t.Errorf("VectorSearchSources = %v", cfg.VectorSearchSources)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearOptional(t)
	t.Setenv("SEARXNG_URL", "http://searx:9000")
	t.Setenv("APP_PORT", "9100")
	t.Setenv("MAX_SEARCH_RETRIES", "5")
	t.Setenv("ENABLE_ANTI_CAPTCHA", "False")
	t.Setenv("SCRAPER_TIMEOUT_SECONDS", "4")
	t.Setenv("SCRAPER_MAX_LENGTH", "2000")
	t.Setenv("REDDIT_REWRITE_GOOGLE", "false")
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("VECTOR_SEARCH_URL", "http://vector:7100")
	t.Setenv("VECTOR_SEARCH_SOURCES", " docs, wiki ,")
	t.Setenv("TOR_PROXY_URL", "socks5://127.0.0.1:9050")
	t.Setenv("TOR_CONTROL_ADDR", "127.0.0.1:9051")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.AppPort != 9100 {
		t.Errorf("AppPort = %d", cfg.AppPort)
	}
	if cfg.MaxSearchRetries != 5 {
		t.Errorf("MaxSearchRetries = %d", cfg.MaxSearchRetries)
	}
	if cfg.EnableAntiCaptcha {
		t.Error("EnableAntiCaptcha should be false")
	}
	if cfg.ScraperTimeout != 4*time.Second {
		t.Errorf("ScraperTimeout = %v", cfg.ScraperTimeout)
	}
	if cfg.ScraperMaxLength != 2000 {
		t.Errorf("ScraperMaxLength = %d", cfg.ScraperMaxLength)
	}
	if cfg.RewriteRedditGoogle {
		t.Error("RewriteRedditGoogle should be false")
	}
	if cfg.RedditClientID != "id" || cfg.RedditClientSecret != "secret" {
		t.Errorf("reddit credentials = %q, %q", cfg.RedditClientID, cfg.RedditClientSecret)
	}
	if len(cfg.VectorSearchSources) != 2 || cfg.VectorSearchSources[0] != "docs" || cfg.VectorSearchSources[1] != "wiki" {
		t.Errorf("VectorSearchSources = %v", cfg.VectorSearchSources)
	}
	if cfg.TorProxyURL != "socks5://127.0.0.1:9050" || cfg.TorControlAddr != "127.0.0.1:9051" {
		t.Errorf("tor settings = %q, %q", cfg.TorProxyURL, cfg.TorControlAddr)
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "APP_PORT", "not-a-port"},
		{"bad retries", "MAX_SEARCH_RETRIES", "three"},
		{"bad timeout", "SCRAPER_TIMEOUT_SECONDS", "10s"},
		{"bad max length", "SCRAPER_MAX_LENGTH", "10k"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearOptional(t)
			t.Setenv("SEARXNG_URL", "http://localhost:8080")
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
