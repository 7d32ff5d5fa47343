package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
)

const feedOne = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Feed One</title>
<item><title>Older Story</title><link>https://example.com/older</link>
<description>older</description><pubDate>Tue, 03 Mar 2026 08:00:00 GMT</pubDate></item>
<item><title>Newest Story</title><link>https://example.com/newest</link>
<description>newest</description><pubDate>Wed, 04 Mar 2026 10:00:00 GMT</pubDate></item>
<item><title>Undated Story</title><link>https://example.com/undated</link>
<description>no date</description></item>
</channel></rss>`

const feedTwo = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Feed Two</title>
<item><title>Newest Story</title><link>https://example.com/newest</link>
<description>duplicate</description><pubDate>Wed, 04 Mar 2026 10:00:00 GMT</pubDate></item>
<item><title>Second Feed Story</title><link>https://example.com/second</link>
<description>second</description><pubDate>Wed, 04 Mar 2026 09:00:00 GMT</pubDate></item>
</channel></rss>`

func serveXML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchMergesAndSorts(t *testing.T) {
	t.Parallel()

	one := serveXML(t, feedOne)
	two := serveXML(t, feedTwo)

	source := NewSource(gofeed.NewParser(), nil)
	entries, err := source.Fetch(context.Background(), []string{one.URL, two.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("expected 4 unique entries, got %d", len(entries))
	}
	if entries[0].Title != "Newest Story" {
		t.Fatalf("newest entry should sort first, got %q", entries[0].Title)
	}
	if entries[len(entries)-1].Title != "Undated Story" {
		t.Fatalf("undated entry should sort last, got %q", entries[len(entries)-1].Title)
	}
}

func TestFetchDeduplicatesAcrossFeeds(t *testing.T) {
	t.Parallel()

	one := serveXML(t, feedOne)
	two := serveXML(t, feedTwo)

	source := NewSource(gofeed.NewParser(), nil)
	entries, err := source.Fetch(context.Background(), []string{one.URL, two.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	var count int
	for _, entry := range entries {
		if entry.Title == "Newest Story" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate entry should appear once, got %d", count)
	}
}

func TestFetchSkipsBrokenFeed(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	ok := serveXML(t, feedTwo)

	source := NewSource(gofeed.NewParser(), nil)
	entries, err := source.Fetch(context.Background(), []string{broken.URL, ok.URL})
	if err != nil {
		t.Fatalf("a broken feed must not fail the fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected entries from the healthy feed, got %d", len(entries))
	}
}

func TestFetchNoFeeds(t *testing.T) {
	t.Parallel()

	source := NewSource(nil, nil)
	entries, err := source.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
