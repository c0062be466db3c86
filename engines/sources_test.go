package engines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseSourceResults(t *testing.T) {
	payload := `{"results": [
		{"title": "Product Hunt launch", "url": "https://example.com/a", "content": "desc"},
		{"title": "", "url": "https://example.com/b", "content": "no title"},
		{"title": "no url", "url": "", "content": "dropped"},
		{"title": "bare", "url": "https://example.com/c"}
	]}`

	results, err := ParseSourceResults([]byte(payload))
	if err != nil {
		t.Fatalf("ParseSourceResults returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://example.com/a" || results[0].Content != "desc" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Content != "" {
		t.Errorf("missing content should stay empty, got %q", results[1].Content)
	}
	for i, result := range results {
		if result.Kind != KindText {
			t.Errorf("result %d Kind = %q, want %q", i, result.Kind, KindText)
		}
	}
}

func TestSourcesEngineSearch(t *testing.T) {
	var gotPath, gotSource, gotN string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSource = r.URL.Query().Get("source")
		gotN = r.URL.Query().Get("n")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"title": "t", "url": "https://example.com", "content": "c"}]}`))
	}))
	defer server.Close()

	engine := NewSourcesEngine(server.URL, "producthunt")
	results, err := engine.Search(context.Background(), "launch tracker")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if gotPath != "/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotSource != "producthunt" {
		t.Errorf("source = %q", gotSource)
	}
	if gotN != "10" {
		t.Errorf("n = %q", gotN)
	}
}
