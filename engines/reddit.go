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
)

const (
	pullPushURL    = "https://api.pullpush.io/reddit/submission/search"
	redditBaseURL  = "https://www.reddit.com"
	redditPageSize = 25
)

// Placeholder values Reddit uses when a post has no real preview image.
var thumbnailSentinels = map[string]bool{
	"self":    true,
	"default": true,
	"nsfw":    true,
	"spoiler": true,
	"":        true,
}

type redditPost struct {
	Title       string  `json:"title"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Selftext    string  `json:"selftext"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Thumbnail   string  `json:"thumbnail"`
}

// RedditEngine searches Reddit submissions through the PullPush mirror,
// which does not 403 datacenter IPs the way reddit.com/search.json does.
type RedditEngine struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewRedditEngine() *RedditEngine {
	return &RedditEngine{
		BaseURL: pullPushURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *RedditEngine) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("size", strconv.Itoa(redditPageSize))
	params.Set("sort", "score")
	params.Set("order", "desc")

	req, err := http.NewRequestWithContext(ctx, "GET", e.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pullpush returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return ParsePullPush(body)
}

// ParsePullPush converts a PullPush submission payload into uniform
// records. Posts with a real thumbnail URL become image records and sort
// ahead of the text records.
func ParsePullPush(data []byte) ([]Result, error) {
	var payload struct {
		Data []redditPost `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pullpush response: %w", err)
	}

	var imgResults, textResults []Result
	for _, post := range payload.Data {
		if post.Permalink == "" || post.Title == "" {
			continue
		}
		canonical := redditBaseURL + post.Permalink

		if isImageThumbnail(post.Thumbnail) {
			imgSrc := post.URL
			if imgSrc == "" {
				imgSrc = canonical
			}
			imgResults = append(imgResults, Result{
				URL:          canonical,
				Title:        post.Title,
				ImgSrc:       imgSrc,
				ThumbnailSrc: post.Thumbnail,
				Kind:         KindImage,
			})
			continue
		}

		result := Result{
			URL:      canonical,
			Title:    post.Title,
			Content:  truncateContent(post.Selftext),
			Metadata: redditMetadata(post.Subreddit, post.Score, post.NumComments),
			Kind:     KindText,
		}
		if post.CreatedUTC != 0 {
			result.PublishedDate = time.Unix(int64(post.CreatedUTC), 0)
		}
		textResults = append(textResults, result)
	}

	return append(imgResults, textResults...), nil
}

func isImageThumbnail(thumbnail string) bool {
	if thumbnailSentinels[thumbnail] {
		return false
	}
	u, err := url.Parse(thumbnail)
	if err != nil {
		return false
	}
	return u.Host != "" && u.Path != ""
}
