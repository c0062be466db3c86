// Package engines normalizes per-engine result payloads into one uniform
// record and hosts the adapters for engines queried directly rather than
// through the aggregator.
package engines

import (
	"context"
	"fmt"
	"time"
)

const (
	KindText  = "text"
	KindImage = "image"
)

// Result is the uniform record every adapter emits. URL and Title are
// always non-empty; posts missing either are dropped during parsing.
type Result struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	PublishedDate time.Time `json:"published_date,omitempty"`
	Metadata      string    `json:"metadata,omitempty"`
	ImgSrc        string    `json:"img_src,omitempty"`
	ThumbnailSrc  string    `json:"thumbnail_src,omitempty"`
	Kind          string    `json:"kind"`
}

type Engine interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Registry maps engine names to in-process adapters so the orchestrator
// can probe them alongside the aggregator.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

func (r *Registry) Register(name string, engine Engine) {
	r.engines[name] = engine
}

func (r *Registry) Lookup(name string) (Engine, bool) {
	engine, ok := r.engines[name]
	return engine, ok
}

const contentLimit = 500

func truncateContent(s string) string {
	runes := []rune(s)
	if len(runes) > contentLimit {
		return string(runes[:contentLimit]) + "..."
	}
	return s
}

func redditMetadata(subreddit string, score, comments int) string {
	if subreddit == "" {
		return ""
	}
	metadata := "r/" + subreddit
	if score != 0 {
		metadata += fmt.Sprintf(" | %d points", score)
	}
	if comments != 0 {
		metadata += fmt.Sprintf(" | %d comments", comments)
	}
	return metadata
}
