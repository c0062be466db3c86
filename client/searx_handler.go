package client

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"metaseek/engines"
)

type SearxClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// SearchParams carries one aggregator probe. Headers holds the
// per-attempt randomized set; Categories is omitted from the form when
// empty.
type SearchParams struct {
	Query      string
	Engines    string
	Categories string
	Headers    map[string]string
}

type SearxHandler interface {
	Search(ctx context.Context, params SearchParams) ([]engines.Result, error)
}

func NewSearxClient(baseURL string, httpClient *http.Client) *SearxClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &SearxClient{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	}
}

func (c *SearxClient) Search(ctx context.Context, params SearchParams) ([]engines.Result, error) {
	form := url.Values{}
	form.Set("q", params.Query)
	form.Set("format", "json")
	form.Set("engines", params.Engines)
	form.Set("pageno", "1")
	form.Set("language", "auto")
	form.Set("safesearch", "1")
	if params.Categories != "" {
		form.Set("categories", params.Categories)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/search", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range params.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	// The probe advertises Accept-Encoding itself, which turns off the
	// transport's transparent decompression.
	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	var payload searxResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]engines.Result, 0, len(payload.Results))
	for _, item := range payload.Results {
		result := engines.Result{
			URL:          item.URL,
			Title:        item.Title,
			Content:      item.Content,
			Metadata:     item.Metadata,
			ImgSrc:       item.ImgSrc,
			ThumbnailSrc: item.ThumbnailSrc,
			Kind:         engines.KindText,
		}
		if item.Template == "images.html" {
			result.Kind = engines.KindImage
		}
		if item.PublishedDate != "" {
			if parsed, err := time.Parse(time.RFC3339, item.PublishedDate); err == nil {
				result.PublishedDate = parsed
			}
		}
		results = append(results, result)
	}

	return results, nil
}

type searxResponse struct {
	Results []struct {
		URL           string `json:"url"`
		Title         string `json:"title"`
		Content       string `json:"content"`
		Template      string `json:"template"`
		PublishedDate string `json:"publishedDate"`
		ImgSrc        string `json:"img_src"`
		ThumbnailSrc  string `json:"thumbnail_src"`
		Metadata      string `json:"metadata"`
	} `json:"results"`
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
