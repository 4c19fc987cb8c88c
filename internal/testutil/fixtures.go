// Package testutil provides shared fixtures and helpers for journal-api
// tests.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/caelumdev/journal-api/pkg/content"
)

// SampleJournals returns a representative content set: published entries
// across two categories plus one draft.
func SampleJournals() []content.Journal {
	return []content.Journal{
		{
			Slug:     "getting-started-with-caching",
			Title:    "Getting Started With Caching",
			Excerpt:  "Why every response deserves an ETag.",
			Body:     "Conditional requests cut bandwidth without cutting freshness.",
			Status:   content.StatusPublished,
			Category: "engineering",
			Tags:     []string{"http", "caching"},
		},
		{
			Slug:     "portfolio-redesign-notes",
			Title:    "Portfolio Redesign Notes",
			Excerpt:  "Notes from the last redesign.",
			Body:     "Less JavaScript, more content.",
			Status:   content.StatusPublished,
			Category: "design",
			Tags:     []string{"web"},
		},
		{
			Slug:     "unfinished-thoughts",
			Title:    "Unfinished Thoughts",
			Body:     "Not ready yet.",
			Status:   content.StatusDraft,
			Category: "engineering",
			Tags:     []string{"http"},
		},
	}
}

// SeedContent inserts the sample journals into a store.
func SeedContent(t *testing.T, store *content.Store) {
	t.Helper()
	for _, j := range SampleJournals() {
		entry := j
		if _, err := store.CreateJournal(context.Background(), &entry); err != nil {
			t.Fatalf("Failed to seed journal %s: %v", j.Slug, err)
		}
	}
}

// ConditionalClient issues requests while remembering validators from
// earlier responses, replaying If-None-Match on revisits the way a
// well-behaved HTTP cache would.
type ConditionalClient struct {
	client *http.Client

	mu    sync.Mutex
	etags map[string]string

	// Conditional counts requests sent with a validator attached.
	Conditional int

	// NotModified counts 304 responses received.
	NotModified int
}

// NewConditionalClient creates a validator-replaying test client.
func NewConditionalClient() *ConditionalClient {
	return &ConditionalClient{
		client: &http.Client{},
		etags:  make(map[string]string),
	}
}

// Get fetches url, attaching If-None-Match when a previous response for
// the same URL carried an ETag.
func (c *ConditionalClient) Get(t *testing.T, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}

	c.mu.Lock()
	if etag, ok := c.etags[url]; ok {
		req.Header.Set("If-None-Match", etag)
		c.Conditional++
	}
	c.mu.Unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	c.mu.Lock()
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.etags[url] = etag
	}
	if resp.StatusCode == http.StatusNotModified {
		c.NotModified++
	}
	c.mu.Unlock()

	return resp
}

// Forget drops the remembered validator for url, forcing the next Get to
// be unconditional.
func (c *ConditionalClient) Forget(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.etags, url)
}
