package search

import (
	"context"

	"metaseek/engines"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enricher scrapes pages for raw content, keyed by URL. Failed URLs are
// simply absent from the returned map.
type Enricher interface {
	ScrapeAll(ctx context.Context, urls []string, format string) map[string]string
}

// Assembler converts uniform engine records into the Tavily response
// shape and, when asked, fans out page enrichment.
type Assembler struct {
	enricher Enricher
	logger   *zap.Logger
}

func NewAssembler(enricher Enricher, logger *zap.Logger) *Assembler {
	return &Assembler{
		enricher: enricher,
		logger:   logger,
	}
}

// Assemble bounds records to the requested size, drops records without a
// URL and assigns positional scores of 0.9 stepping down by 0.05 per
// rank. Raw content is keyed by URL so completion order cannot shuffle
// it.
func (a *Assembler) Assemble(ctx context.Context, req *Request, records []engines.Result) *Response {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(records) > maxResults {
		records = records[:maxResults]
	}

	rawContents := map[string]string{}
	if req.IncludeRawContent && a.enricher != nil && len(records) > 0 {
		urls := make([]string, 0, len(records))
		for _, record := range records {
			if record.URL != "" {
				urls = append(urls, record.URL)
			}
		}
		rawContents = a.enricher.ScrapeAll(ctx, urls, req.ContentFormat)
	}

	results := make([]Result, 0, len(records))
	for i, record := range records {
		if record.URL == "" {
			continue
		}

		result := Result{
			URL:     record.URL,
			Title:   record.Title,
			Content: record.Content,
			Score:   0.9 - float64(i)*0.05,
		}
		if req.IncludeRawContent {
			if content, ok := rawContents[record.URL]; ok {
				result.RawContent = &content
			}
		}
		results = append(results, result)
	}

	return &Response{
		Query:     req.Query,
		Images:    []string{},
		Results:   results,
		RequestID: uuid.NewString(),
	}
}
