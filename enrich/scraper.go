// Package enrich fetches result pages and distills them into the raw
// content attached to search responses.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Page chrome stripped before extraction.
const removedTags = "script, style, nav, header, footer, aside, iframe"

type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxLength int
}

// DefaultConfig returns the default scraper configuration
func DefaultConfig() *Config {
	return &Config{
		UserAgent: "Mozilla/5.0 (compatible; TavilyBot/1.0)",
		Timeout:   10 * time.Second,
		MaxLength: 10000,
	}
}

// Scraper downloads pages and extracts their main content as plain text
// or Markdown. An optional PageCache short-circuits repeat fetches.
type Scraper struct {
	config     *Config
	httpClient *http.Client
	cache      *PageCache
	logger     *zap.Logger
}

func NewScraper(config *Config, httpClient *http.Client, cache *PageCache, logger *zap.Logger) *Scraper {
	if config == nil {
		config = DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Scraper{
		config:     config,
		httpClient: httpClient,
		cache:      cache,
		logger:     logger,
	}
}

// Scrape fetches a single page and returns its extracted content in the
// requested format ("markdown" or "text"), truncated to the configured
// maximum length.
func (s *Scraper) Scrape(ctx context.Context, pageURL, format string) (string, error) {
	cacheKey := format + ":" + pageURL
	if s.cache != nil {
		if content, ok := s.cache.Get(cacheKey); ok {
			s.logger.Debug("page cache hit", zap.String("url", pageURL))
			return content, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	content, err := s.extract(body, pageURL, format)
	if err != nil {
		return "", err
	}
	content = truncate(content, s.config.MaxLength)

	if s.cache != nil {
		if err := s.cache.Put(cacheKey, content); err != nil {
			s.logger.Warn("failed to cache page",
				zap.String("url", pageURL),
				zap.Error(err))
		}
	}
	return content, nil
}

// ScrapeAll fetches every URL concurrently and returns the extracted
// content keyed by URL. A URL that fails or yields nothing is simply
// absent from the result.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string, format string) map[string]string {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		contents = make(map[string]string, len(urls))
	)

	for _, pageURL := range urls {
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()

			content, err := s.Scrape(ctx, pageURL, format)
			if err != nil {
				s.logger.Warn("failed to scrape page",
					zap.String("url", pageURL),
					zap.Error(err))
				return
			}
			if content == "" {
				return
			}

			mu.Lock()
			contents[pageURL] = content
			mu.Unlock()
		}(pageURL)
	}
	wg.Wait()

	return contents
}

func (s *Scraper) extract(body []byte, pageURL, format string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find(removedTags).Each(func(i int, sel *goquery.Selection) {
		sel.Remove()
	})
	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned page: %w", err)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}

	result, err := trafilatura.Extract(strings.NewReader(cleaned), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil || result.ContentNode == nil {
		s.logger.Debug("extraction failed, falling back to readability",
			zap.String("url", pageURL),
			zap.Error(err))
		return extractWithReadability(cleaned, parsedURL, format)
	}

	if format == "markdown" {
		htmlStr, err := renderNode(result.ContentNode)
		if err != nil {
			return "", err
		}
		return htmltomarkdown.ConvertString(htmlStr)
	}
	return result.ContentText, nil
}

func extractWithReadability(cleaned string, parsedURL *url.URL, format string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(cleaned), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	if format == "markdown" {
		return htmltomarkdown.ConvertString(article.Content)
	}
	return article.TextContent, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}
