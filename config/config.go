package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort           int
	SearxngURL        string
	MaxSearchRetries  int
	EnableAntiCaptcha bool

	ScraperTimeout   time.Duration
	ScraperMaxLength int
	ScraperUserAgent string
	CachePath        string

	RedditClientID      string
	RedditClientSecret  string
	RewriteRedditGoogle bool

	VectorSearchURL     string
	VectorSearchSources []string

	TorProxyURL    string
	TorControlAddr string

	EngineTablePath string
}

func Load() (*Config, error) {
	appPort, err := strconv.Atoi(getEnvOr("APP_PORT", "8013"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnvOr("MAX_SEARCH_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_SEARCH_RETRIES: %w", err)
	}
	scraperTimeout, err := strconv.Atoi(getEnvOr("SCRAPER_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT_SECONDS: %w", err)
	}
	scraperMaxLength, err := strconv.Atoi(getEnvOr("SCRAPER_MAX_LENGTH", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_MAX_LENGTH: %w", err)
	}

	return &Config{
		AppPort:           appPort,
		SearxngURL:        getEnv("SEARXNG_URL"),
		MaxSearchRetries:  maxRetries,
		EnableAntiCaptcha: getEnvBool("ENABLE_ANTI_CAPTCHA", true),

		ScraperTimeout:   time.Duration(scraperTimeout) * time.Second,
		ScraperMaxLength: scraperMaxLength,
		ScraperUserAgent: getEnvOr("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; TavilyBot/1.0)"),
		CachePath:        os.Getenv("CACHE_PATH"),

		RedditClientID:      os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret:  os.Getenv("REDDIT_CLIENT_SECRET"),
		RewriteRedditGoogle: getEnvBool("REDDIT_REWRITE_GOOGLE", true),

		VectorSearchURL:     os.Getenv("VECTOR_SEARCH_URL"),
		VectorSearchSources: splitList(os.Getenv("VECTOR_SEARCH_SOURCES")),

		TorProxyURL:    os.Getenv("TOR_PROXY_URL"),
		TorControlAddr: os.Getenv("TOR_CONTROL_ADDR"),

		EngineTablePath: os.Getenv("ENGINE_TABLE_PATH"),
	}, nil
}

func getEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required but not set", key)
	}
	return value
}

func getEnvOr(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return strings.ToLower(value) == "true"
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
