package search

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"metaseek/client"
	"metaseek/engines"

	"go.uber.org/zap"
)

// Browser User-Agents rotated across attempts.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (compatible; TavilyBot/1.0)",
	"Mozilla/5.0 (compatible; SearchBot/1.0)",
}

// Engine sets tried after the smart selection fails to produce results.
var engineFallbacks = []string{
	"google,duckduckgo,brave",
	"google,brave,wikipedia",
	"duckduckgo,brave,wikipedia",
	"google,duckduckgo,wikipedia,wikidata",
}

type aggregator interface {
	Search(ctx context.Context, params client.SearchParams) ([]engines.Result, error)
}

// Orchestrator runs the retry loop against the aggregator, rotating
// engine sets and randomized headers between attempts, and merges in
// results from directly registered engines.
type Orchestrator struct {
	searx         aggregator
	selector      *Selector
	registry      *engines.Registry
	maxRetries    int
	rewriteReddit bool
	logger        *zap.Logger

	rng   *rand.Rand
	sleep func(time.Duration)
}

func NewOrchestrator(searx aggregator, selector *Selector, registry *engines.Registry, maxRetries int, rewriteReddit bool, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		searx:         searx,
		selector:      selector,
		registry:      registry,
		maxRetries:    maxRetries,
		rewriteReddit: rewriteReddit,
		logger:        logger,
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:         time.Sleep,
	}
}

// Search probes until an attempt yields results or the retry budget runs
// out. Exhaustion returns an empty set, never an error: per-attempt
// failures are logged and absorbed.
func (o *Orchestrator) Search(ctx context.Context, query, userEngines string) []engines.Result {
	if o.rewriteReddit {
		query, userEngines = rewriteRedditQuery(query, userEngines)
	}

	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		var engineList string
		switch {
		case userEngines != "":
			engineList = userEngines
		case attempt == 0:
			engineList = o.selector.SmartEngines(query)
		default:
			engineList = engineFallbacks[(attempt-1)%len(engineFallbacks)]
		}

		categories := ""
		if userEngines == "" {
			categories = CategoriesFor(engineList)
		}

		o.logger.Info("search attempt",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", o.maxRetries),
			zap.String("engines", engineList),
		)

		if attempt > 0 {
			delay := time.Duration((1 + 2*o.rng.Float64()) * float64(time.Second))
			o.logger.Info("waiting before retry", zap.Duration("delay", delay))
			o.sleep(delay)
		}

		results, err := o.searx.Search(ctx, client.SearchParams{
			Query:      query,
			Engines:    engineList,
			Categories: categories,
			Headers:    o.probeHeaders(),
		})
		if err != nil {
			o.logger.Warn("aggregator probe failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			results = nil
		}

		results = append(results, o.searchDirect(ctx, query, engineList)...)

		if len(results) > 0 {
			o.logger.Info("search successful",
				zap.Int("attempt", attempt+1),
				zap.Int("results", len(results)),
			)
			return results
		}
		if err == nil {
			o.logger.Warn("no results", zap.Int("attempt", attempt+1))
		}
	}

	o.logger.Error("all search attempts failed", zap.Int("max_retries", o.maxRetries))
	return nil
}

// SearchOnce performs a single probe with fixed headers, used when the
// retry loop is disabled. Unlike Search it surfaces the probe error.
func (o *Orchestrator) SearchOnce(ctx context.Context, query, userEngines string) ([]engines.Result, error) {
	if o.rewriteReddit {
		query, userEngines = rewriteRedditQuery(query, userEngines)
	}

	engineList := userEngines
	if engineList == "" {
		engineList = o.selector.SmartEngines(query)
	}
	categories := ""
	if userEngines == "" {
		categories = CategoriesFor(engineList)
	}

	results, err := o.searx.Search(ctx, client.SearchParams{
		Query:      query,
		Engines:    engineList,
		Categories: categories,
		Headers: map[string]string{
			"X-Forwarded-For": "127.0.0.1",
			"X-Real-IP":       "127.0.0.1",
			"User-Agent":      "Mozilla/5.0 (compatible; TavilyBot/1.0)",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregator: %w", err)
	}

	return append(results, o.searchDirect(ctx, query, engineList)...), nil
}

func (o *Orchestrator) searchDirect(ctx context.Context, query, engineList string) []engines.Result {
	if o.registry == nil {
		return nil
	}

	var results []engines.Result
	for _, name := range strings.Split(engineList, ",") {
		name = strings.TrimSpace(name)
		engine, ok := o.registry.Lookup(name)
		if !ok {
			continue
		}
		direct, err := engine.Search(ctx, query)
		if err != nil {
			o.logger.Warn("direct engine failed",
				zap.String("engine", name),
				zap.Error(err),
			)
			continue
		}
		results = append(results, direct...)
	}
	return results
}

func (o *Orchestrator) probeHeaders() map[string]string {
	return map[string]string{
		"X-Forwarded-For":           fmt.Sprintf("192.168.1.%d", o.rng.IntN(254)+1),
		"X-Real-IP":                 fmt.Sprintf("10.0.0.%d", o.rng.IntN(254)+1),
		"User-Agent":                userAgents[o.rng.IntN(len(userAgents))],
		"Accept":                    "application/json,text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip, deflate",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// rewriteRedditQuery swaps the reddit engine for a site:reddit.com Google
// search. PullPush results rank poorly; Google's Reddit index does
// better.
func rewriteRedditQuery(query, engineList string) (string, string) {
	if engineList == "" {
		return query, engineList
	}

	var names []string
	hasReddit := false
	for _, name := range strings.Split(engineList, ",") {
		name = strings.TrimSpace(name)
		if name == "reddit" {
			hasReddit = true
			continue
		}
		names = append(names, name)
	}
	if !hasReddit {
		return query, engineList
	}

	if !slices.Contains(names, "google") {
		names = append([]string{"google"}, names...)
	}
	if !strings.Contains(query, "site:reddit.com") {
		query = "site:reddit.com " + query
	}
	return query, strings.Join(names, ",")
}
