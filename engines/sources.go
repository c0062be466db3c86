package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SourcesEngine queries a flat HTTP search API that returns
// {"results": [{"title", "url", "content"}]}. Source narrows the search
// to one upstream collection; empty searches all of them.
type SourcesEngine struct {
	BaseURL    string
	HTTPClient *http.Client
	Source     string
}

func NewSourcesEngine(baseURL, source string) *SourcesEngine {
	return &SourcesEngine{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Source: source,
	}
}

func (e *SourcesEngine) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("n", "10")
	if e.Source != "" {
		params.Set("source", e.Source)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", e.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return ParseSourceResults(body)
}

// ParseSourceResults keeps entries that carry both a title and a URL and
// passes content through untouched.
func ParseSourceResults(data []byte) ([]Result, error) {
	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source response: %w", err)
	}

	var results []Result
	for _, item := range payload.Results {
		if item.Title == "" || item.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:     item.URL,
			Title:   item.Title,
			Content: item.Content,
			Kind:    KindText,
		})
	}

	return results, nil
}
