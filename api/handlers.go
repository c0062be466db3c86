package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"metaseek/client"
	"metaseek/engines"
	"metaseek/search"

	"go.uber.org/zap"
)

// Searcher runs the query orchestration, either with the full retry
// loop or as a single probe that surfaces its error.
type Searcher interface {
	Search(ctx context.Context, query, engines string) []engines.Result
	SearchOnce(ctx context.Context, query, engines string) ([]engines.Result, error)
}

// Assembler shapes engine records into the response envelope.
type Assembler interface {
	Assemble(ctx context.Context, req *search.Request, records []engines.Result) *search.Response
}

// TranscriptFetcher resolves YouTube captions for a video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, languages []string, maxLength int) (*client.Transcript, error)
}

// Handler holds the search components behind the HTTP endpoints.
type Handler struct {
	searcher    Searcher
	assembler   Assembler
	transcripts TranscriptFetcher
	retryMode   bool
	logger      *zap.Logger
}

// NewHandler creates a new endpoint handler. With retryMode the search
// endpoint runs the full anti-captcha retry loop; without it a single
// probe is made and its failure is reported to the caller.
func NewHandler(searcher Searcher, assembler Assembler, transcripts TranscriptFetcher, retryMode bool, logger *zap.Logger) *Handler {
	return &Handler{
		searcher:    searcher,
		assembler:   assembler,
		transcripts: transcripts,
		retryMode:   retryMode,
		logger:      logger,
	}
}

// SearchHandler handles Tavily-compatible search requests
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		http.Error(w, "Query must not be empty", http.StatusBadRequest)
		return
	}
	if req.ContentFormat == "" {
		req.ContentFormat = search.FormatMarkdown
	}
	if req.ContentFormat != search.FormatText && req.ContentFormat != search.FormatMarkdown {
		http.Error(w, `content_format must be "text" or "markdown"`, http.StatusBadRequest)
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = search.DefaultMaxResults
	}

	start := time.Now()
	h.logger.Info("search request",
		zap.String("query", req.Query),
		zap.String("engines", req.Engines),
	)

	var records []engines.Result
	if h.retryMode {
		records = h.searcher.Search(r.Context(), req.Query, req.Engines)
	} else {
		var err error
		records, err = h.searcher.SearchOnce(r.Context(), req.Query, req.Engines)
		if err != nil {
			h.logger.Error("search failed", zap.Error(err))
			status := searchErrorStatus(err)
			if status == http.StatusGatewayTimeout {
				http.Error(w, "SearXNG timeout", status)
			} else {
				http.Error(w, "Search service unavailable", status)
			}
			return
		}
	}

	resp := h.assembler.Assemble(r.Context(), &req, records)
	resp.ResponseTime = time.Since(start).Seconds()

	h.logger.Info("search completed",
		zap.Int("results", len(resp.Results)),
		zap.Float64("response_time", resp.ResponseTime),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// searchErrorStatus maps probe failures onto 504 for timeouts and 500
// for everything else.
func searchErrorStatus(err error) int {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// TranscriptRequest represents a transcript lookup request. VideoID
// accepts a bare 11-character YouTube ID or a full watch URL.
type TranscriptRequest struct {
	VideoID   string   `json:"video_id"`
	Languages []string `json:"languages"`
	MaxLength int      `json:"max_length"`
}

// TranscriptHandler handles YouTube transcript requests
func (h *Handler) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Languages) == 0 {
		req.Languages = []string{"en", "ru"}
	}
	if req.MaxLength <= 0 {
		req.MaxLength = 5000
	}

	videoID, err := client.ExtractVideoID(req.VideoID)
	if err != nil {
		http.Error(w, "Invalid YouTube URL", http.StatusBadRequest)
		return
	}

	h.logger.Info("transcript request", zap.String("video_id", videoID))

	transcript, err := h.transcripts.Fetch(r.Context(), videoID, req.Languages, req.MaxLength)
	if err != nil {
		h.logger.Warn("transcript fetch failed",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		http.Error(w, "Transcript not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transcript)
}
