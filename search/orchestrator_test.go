package search

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"slices"
	"testing"
	"time"

	"metaseek/client"
	"metaseek/engines"

	"go.uber.org/zap"
)

type probeResponse struct {
	results []engines.Result
	err     error
}

type fakeAggregator struct {
	calls     []client.SearchParams
	responses []probeResponse
}

func (f *fakeAggregator) Search(ctx context.Context, params client.SearchParams) ([]engines.Result, error) {
	f.calls = append(f.calls, params)
	i := len(f.calls) - 1
	if i >= len(f.responses) {
		return nil, nil
	}
	return f.responses[i].results, f.responses[i].err
}

type fakeEngine struct {
	results []engines.Result
	err     error
	calls   int
}

func (f *fakeEngine) Search(ctx context.Context, query string) ([]engines.Result, error) {
	f.calls++
	return f.results, f.err
}

func newTestOrchestrator(fake *fakeAggregator, registry *engines.Registry, maxRetries int) (*Orchestrator, *[]time.Duration) {
	o := NewOrchestrator(fake, NewSelector(nil), registry, maxRetries, true, zap.NewNop())
	o.rng = rand.New(rand.NewPCG(1, 2))
	delays := &[]time.Duration{}
	o.sleep = func(d time.Duration) { *delays = append(*delays, d) }
	return o, delays
}

func oneResult(url string) []engines.Result {
	return []engines.Result{{URL: url, Title: "t", Kind: engines.KindText}}
}

func TestOrchestratorFirstAttemptSuccess(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://example.com/hit")},
	}}
	o, delays := newTestOrchestrator(fake, nil, 3)

	results := o.Search(context.Background(), "python programming tutorial", "")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(fake.calls) != 1 {
		t.Fatalf("got %d probes, want 1", len(fake.calls))
	}
	if fake.calls[0].Engines != EnginesTech {
		t.Errorf("first attempt engines = %q, want smart selection %q", fake.calls[0].Engines, EnginesTech)
	}
	if fake.calls[0].Categories == "" {
		t.Error("smart-selected probe should carry categories")
	}
	if len(*delays) != 0 {
		t.Errorf("first attempt must not be delayed, got %v", *delays)
	}
}

func TestOrchestratorFallbackCycling(t *testing.T) {
	fake := &fakeAggregator{}
	o, delays := newTestOrchestrator(fake, nil, 6)

	results := o.Search(context.Background(), "weather forecast", "")
	if results != nil {
		t.Fatalf("exhausted search should return no results, got %d", len(results))
	}
	if len(fake.calls) != 6 {
		t.Fatalf("got %d probes, want 6", len(fake.calls))
	}

	if fake.calls[0].Engines != EnginesGeneral {
		t.Errorf("attempt 0 engines = %q", fake.calls[0].Engines)
	}
	wantFallbacks := []string{
		engineFallbacks[0], engineFallbacks[1], engineFallbacks[2], engineFallbacks[3],
		engineFallbacks[0], // cycles back around
	}
	for i, want := range wantFallbacks {
		if fake.calls[i+1].Engines != want {
			t.Errorf("attempt %d engines = %q, want %q", i+1, fake.calls[i+1].Engines, want)
		}
	}

	if len(*delays) != 5 {
		t.Fatalf("got %d delays, want 5", len(*delays))
	}
	for i, delay := range *delays {
		if delay < time.Second || delay >= 3*time.Second {
			t.Errorf("delay %d = %v, want within [1s, 3s)", i, delay)
		}
	}
}

func TestOrchestratorUserEnginesFixed(t *testing.T) {
	fake := &fakeAggregator{}
	o, _ := newTestOrchestrator(fake, nil, 3)

	o.Search(context.Background(), "anything", "wikipedia,brave")
	if len(fake.calls) != 3 {
		t.Fatalf("got %d probes, want 3", len(fake.calls))
	}
	for i, call := range fake.calls {
		if call.Engines != "wikipedia,brave" {
			t.Errorf("attempt %d engines = %q, want user override", i, call.Engines)
		}
		if call.Categories != "" {
			t.Errorf("attempt %d categories = %q, want empty for explicit engines", i, call.Categories)
		}
	}
}

func TestOrchestratorAbsorbsAttemptFailures(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{err: errors.New("connection refused")},
		{results: nil},
		{results: oneResult("https://example.com/late")},
	}}
	o, _ := newTestOrchestrator(fake, nil, 3)

	results := o.Search(context.Background(), "weather forecast", "")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 from the final attempt", len(results))
	}
	if len(fake.calls) != 3 {
		t.Errorf("got %d probes, want 3", len(fake.calls))
	}
}

func TestOrchestratorProbeHeaders(t *testing.T) {
	fake := &fakeAggregator{}
	o, _ := newTestOrchestrator(fake, nil, 4)

	o.Search(context.Background(), "weather forecast", "")

	forwardedPattern := regexp.MustCompile(`^192\.168\.1\.(\d{1,3})$`)
	realIPPattern := regexp.MustCompile(`^10\.0\.0\.(\d{1,3})$`)

	for i, call := range fake.calls {
		headers := call.Headers
		if !slices.Contains(userAgents, headers["User-Agent"]) {
			t.Errorf("attempt %d User-Agent %q not in rotation list", i, headers["User-Agent"])
		}
		if !forwardedPattern.MatchString(headers["X-Forwarded-For"]) {
			t.Errorf("attempt %d X-Forwarded-For = %q", i, headers["X-Forwarded-For"])
		}
		if !realIPPattern.MatchString(headers["X-Real-IP"]) {
			t.Errorf("attempt %d X-Real-IP = %q", i, headers["X-Real-IP"])
		}
		if headers["DNT"] != "1" || headers["Upgrade-Insecure-Requests"] != "1" {
			t.Errorf("attempt %d static headers missing: %v", i, headers)
		}
	}
}

func TestOrchestratorDirectEngines(t *testing.T) {
	direct := &fakeEngine{results: oneResult("https://www.reddit.com/r/golang/comments/1/a/")}
	registry := engines.NewRegistry()
	registry.Register("reddit api", direct)

	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://example.com/from-aggregator")},
	}}
	o, _ := newTestOrchestrator(fake, registry, 3)

	results := o.Search(context.Background(), "anything", "reddit api")
	if direct.calls != 1 {
		t.Fatalf("direct engine called %d times, want 1", direct.calls)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want aggregator + direct", len(results))
	}
	if results[0].URL != "https://example.com/from-aggregator" {
		t.Errorf("aggregator results should come first, got %q", results[0].URL)
	}
}

func TestOrchestratorDirectEngineFailureAbsorbed(t *testing.T) {
	direct := &fakeEngine{err: errors.New("token exchange failed")}
	registry := engines.NewRegistry()
	registry.Register("reddit api", direct)

	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://example.com/ok")},
	}}
	o, _ := newTestOrchestrator(fake, registry, 3)

	results := o.Search(context.Background(), "anything", "reddit api")
	if len(results) != 1 {
		t.Fatalf("got %d results, want aggregator result despite direct failure", len(results))
	}
}

func TestOrchestratorSearchOnce(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://example.com/simple")},
	}}
	o, delays := newTestOrchestrator(fake, nil, 3)

	results, err := o.SearchOnce(context.Background(), "weather forecast", "")
	if err != nil {
		t.Fatalf("SearchOnce returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(fake.calls) != 1 {
		t.Fatalf("got %d probes, want 1", len(fake.calls))
	}
	headers := fake.calls[0].Headers
	if headers["X-Forwarded-For"] != "127.0.0.1" || headers["X-Real-IP"] != "127.0.0.1" {
		t.Errorf("simple probe should use loopback spoof headers, got %v", headers)
	}
	if len(*delays) != 0 {
		t.Errorf("simple probe must not sleep, got %v", *delays)
	}
}

func TestOrchestratorSearchOnceSurfacesError(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{err: errors.New("boom")},
	}}
	o, _ := newTestOrchestrator(fake, nil, 3)

	if _, err := o.SearchOnce(context.Background(), "anything", ""); err == nil {
		t.Error("SearchOnce should surface the probe error")
	}
}

func TestRewriteRedditQuery(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		engines     string
		wantQuery   string
		wantEngines string
	}{
		{"no engines untouched", "golang tips", "", "golang tips", ""},
		{"no reddit untouched", "golang tips", "google,brave", "golang tips", "google,brave"},
		{"reddit alone becomes google", "golang tips", "reddit", "site:reddit.com golang tips", "google"},
		{"google not duplicated", "golang tips", "google,reddit", "site:reddit.com golang tips", "google"},
		{"google prepended", "golang tips", "reddit,wikipedia", "site:reddit.com golang tips", "google,wikipedia"},
		{"site filter not doubled", "site:reddit.com golang tips", "reddit", "site:reddit.com golang tips", "google"},
		{"reddit api is not reddit", "golang tips", "reddit api", "golang tips", "reddit api"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotQuery, gotEngines := rewriteRedditQuery(tc.query, tc.engines)
			if gotQuery != tc.wantQuery {
				t.Errorf("query = %q, want %q", gotQuery, tc.wantQuery)
			}
			if gotEngines != tc.wantEngines {
				t.Errorf("engines = %q, want %q", gotEngines, tc.wantEngines)
			}
		})
	}
}

func TestOrchestratorRewriteApplied(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://www.reddit.com/r/golang/comments/1/a/")},
	}}
	o, _ := newTestOrchestrator(fake, nil, 3)

	o.Search(context.Background(), "golang generics", "reddit")
	if fake.calls[0].Engines != "google" {
		t.Errorf("engines = %q, want rewritten google", fake.calls[0].Engines)
	}
	if fake.calls[0].Query != "site:reddit.com golang generics" {
		t.Errorf("query = %q, want site-filtered", fake.calls[0].Query)
	}
}

func TestOrchestratorRewriteDisabled(t *testing.T) {
	fake := &fakeAggregator{responses: []probeResponse{
		{results: oneResult("https://www.reddit.com/r/golang/comments/1/a/")},
	}}
	o := NewOrchestrator(fake, NewSelector(nil), nil, 3, false, zap.NewNop())
	o.rng = rand.New(rand.NewPCG(1, 2))
	o.sleep = func(time.Duration) {}

	o.Search(context.Background(), "golang generics", "reddit")
	if fake.calls[0].Engines != "reddit" {
		t.Errorf("engines = %q, want reddit kept when rewrite disabled", fake.calls[0].Engines)
	}
	if fake.calls[0].Query != "golang generics" {
		t.Errorf("query = %q, want untouched", fake.calls[0].Query)
	}
}
