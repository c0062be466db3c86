package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditSearchURL = "https://oauth.reddit.com/search"
	redditUserAgent = "metaseek:reddit_api:1.0 (by /u/metaseek-adapter)"
)

// RedditAPIEngine searches through Reddit's official OAuth API. Every
// response updates the shared rate budget; when the budget runs low the
// engine skips requests until the reported reset time passes.
type RedditAPIEngine struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     *TokenProvider
	budget     *RateBudget
	logger     *zap.Logger
}

func NewRedditAPIEngine(tokens *TokenProvider, logger *zap.Logger) *RedditAPIEngine {
	return &RedditAPIEngine{
		BaseURL: redditSearchURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		budget: NewRateBudget(),
		logger: logger,
	}
}

func (e *RedditAPIEngine) Search(ctx context.Context, query string) ([]Result, error) {
	if e.budget.ShouldThrottle() {
		e.logger.Warn("reddit API quota low, backing off",
			zap.Int("remaining", e.budget.Remaining()),
			zap.Time("reset_at", e.budget.ResetAt()),
		)
		return nil, nil
	}

	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(redditPageSize))
	params.Set("sort", "relevance")
	params.Set("t", "all")
	params.Set("type", "link")
	params.Set("restrict_sr", "false")

	req, err := http.NewRequestWithContext(ctx, "GET", e.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", redditUserAgent)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	e.budget.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return ParseListing(body)
}

// ParseListing converts a Reddit listing payload into uniform records in
// a single pass, keeping the listing order. Posts with a real thumbnail
// carry image fields on the same record.
func ParseListing(data []byte) ([]Result, error) {
	var payload struct {
		Data struct {
			Children []struct {
				Data redditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}

	var results []Result
	for _, child := range payload.Data.Children {
		post := child.Data
		if post.Title == "" || post.Permalink == "" {
			continue
		}

		result := Result{
			URL:      redditBaseURL + post.Permalink,
			Title:    post.Title,
			Content:  truncateContent(post.Selftext),
			Metadata: redditMetadata(post.Subreddit, post.Score, post.NumComments),
			Kind:     KindText,
		}
		if post.CreatedUTC != 0 {
			result.PublishedDate = time.Unix(int64(post.CreatedUTC), 0)
		}
		if !thumbnailSentinels[post.Thumbnail] {
			imgSrc := post.URL
			if imgSrc == "" {
				imgSrc = result.URL
			}
			result.ImgSrc = imgSrc
			result.ThumbnailSrc = post.Thumbnail
			result.Kind = KindImage
		}
		results = append(results, result)
	}

	return results, nil
}
