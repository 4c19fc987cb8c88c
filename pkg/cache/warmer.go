package cache

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// warmBatchSize is the number of HEAD requests issued concurrently
	// per batch. Batches run sequentially.
	warmBatchSize = 5

	// warmRequestTimeout bounds each individual warming request so a hung
	// origin cannot stall the run.
	warmRequestTimeout = 10 * time.Second
)

// Warmer proactively issues HEAD requests against popular endpoints so a
// fronting HTTP cache (e.g. a CDN) populates itself before real traffic
// arrives. It is an operator-triggered, out-of-band operation, never part
// of the request path.
//
// Failures are logged and dropped; there is no retry or backoff. A failed
// URL simply stays cold until the next run.
type Warmer struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger

	mu    sync.Mutex
	queue map[string]struct{}
}

// NewWarmer creates a cache warmer that resolves relative URLs against
// baseURL (the public address of this service or its fronting cache).
func NewWarmer(baseURL string) *Warmer {
	return &Warmer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: warmRequestTimeout},
		logger:  log.With().Str("component", "warmer").Logger(),
		queue:   make(map[string]struct{}),
	}
}

// Add queues a URL for the next warming run. Duplicates collapse.
func (w *Warmer) Add(url string) {
	if url == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue[url] = struct{}{}
}

// PopularContent returns the static list of endpoints warmed on every run.
func (w *Warmer) PopularContent() []string {
	return []string{
		"/api/public/journals?limit=10",
		"/api/public/categories",
		"/api/public/tags",
	}
}

// Warm drains the queue plus the popular-content list and issues HEAD
// requests in batches of warmBatchSize, concurrently within each batch and
// sequentially across batches. It returns the URLs that were warmed
// successfully. Individual request failures are dropped; only context
// cancellation aborts the run with an error.
func (w *Warmer) Warm(ctx context.Context) ([]string, error) {
	urls := w.drain()

	warmed := make([]string, 0, len(urls))
	var warmedMu sync.Mutex

	for start := 0; start < len(urls); start += warmBatchSize {
		if err := ctx.Err(); err != nil {
			return warmed, fmt.Errorf("cache warming aborted: %w", err)
		}

		end := start + warmBatchSize
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for _, u := range urls[start:end] {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				if err := w.head(ctx, target); err != nil {
					WarmFailures.Inc()
					w.logger.Warn().Err(err).Str("url", target).Msg("Cache warming request failed")
					return
				}
				warmedMu.Lock()
				warmed = append(warmed, target)
				warmedMu.Unlock()
			}(u)
		}
		wg.Wait()
	}

	w.logger.Info().
		Int("requested", len(urls)).
		Int("warmed", len(warmed)).
		Msg("Cache warming run complete")

	sort.Strings(warmed)
	return warmed, nil
}

// drain collects the queued URLs merged with the popular-content list,
// deduplicated, and clears the queue.
func (w *Warmer) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]struct{}, len(w.queue)+3)
	urls := make([]string, 0, len(w.queue)+3)

	for _, u := range w.PopularContent() {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	for u := range w.queue {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	w.queue = make(map[string]struct{})
	sort.Strings(urls)
	return urls
}

func (w *Warmer) head(ctx context.Context, target string) error {
	reqCtx, cancel := context.WithTimeout(ctx, warmRequestTimeout)
	defer cancel()

	u := target
	if len(u) > 0 && u[0] == '/' {
		u = w.baseURL + u
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	WarmRequests.Inc()
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("head %s: %w", u, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("head %s: unexpected status %d", u, resp.StatusCode)
	}
	return nil
}
