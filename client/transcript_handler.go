package client

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNoTranscript marks videos without captions in any requested
// language, or with captions disabled entirely.
var ErrNoTranscript = errors.New("transcript not available")

const watchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	videoIDPattern       = regexp.MustCompile(`(?:v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)
)

// TranscriptClient pulls YouTube captions from the timedtext endpoint
// referenced in the watch page's player config.
type TranscriptClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTranscriptClient() *TranscriptClient {
	return &TranscriptClient{
		BaseURL: "https://www.youtube.com",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type Transcript struct {
	VideoID      string `json:"video_id"`
	Language     string `json:"language"`
	Text         string `json:"text"`
	SnippetCount int    `json:"snippet_count"`
	CharCount    int    `json:"char_count"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// ExtractVideoID accepts a bare 11-character video ID or a youtube.com /
// youtu.be URL and returns the ID.
func ExtractVideoID(input string) (string, error) {
	if !strings.Contains(input, "youtube.com") && !strings.Contains(input, "youtu.be") {
		return input, nil
	}
	match := videoIDPattern.FindStringSubmatch(input)
	if match == nil {
		return "", errors.New("invalid YouTube URL")
	}
	return match[1], nil
}

// Fetch returns the caption text of a video in the first requested
// language that has a track. Text longer than maxLength runes is cut
// and suffixed with an ellipsis.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string, languages []string, maxLength int) (*Transcript, error) {
	watchURL := c.BaseURL + "/watch?v=" + url.QueryEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, "GET", watchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", watchUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch page: %w", err)
	}

	match := captionTracksPattern.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("%w: no caption tracks for %s", ErrNoTranscript, videoID)
	}

	var tracks []captionTrack
	if err := json.Unmarshal(match[1], &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse caption tracks: %w", err)
	}

	track, err := pickTrack(tracks, languages)
	if err != nil {
		return nil, err
	}

	text, count, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	runes := []rune(text)
	if maxLength > 0 && len(runes) > maxLength {
		text = string(runes[:maxLength]) + "..."
	}

	return &Transcript{
		VideoID:      videoID,
		Language:     track.LanguageCode,
		Text:         text,
		SnippetCount: count,
		CharCount:    len([]rune(text)),
	}, nil
}

func pickTrack(tracks []captionTrack, languages []string) (captionTrack, error) {
	for _, lang := range languages {
		for _, track := range tracks {
			if track.LanguageCode == lang || strings.HasPrefix(track.LanguageCode, lang+"-") {
				return track, nil
			}
		}
	}
	return captionTrack{}, fmt.Errorf("%w: no track in requested languages", ErrNoTranscript)
}

func (c *TranscriptClient) fetchTimedText(ctx context.Context, captionURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", captionURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read timedtext: %w", err)
	}

	var timedText struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &timedText); err != nil {
		return "", 0, fmt.Errorf("failed to parse timedtext: %w", err)
	}

	// YouTube escapes entities twice: the XML layer leaves &#39; behind.
	parts := make([]string, 0, len(timedText.Texts))
	for _, snippet := range timedText.Texts {
		parts = append(parts, html.UnescapeString(snippet.Value))
	}

	return strings.Join(parts, " "), len(parts), nil
}
