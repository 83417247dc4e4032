package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/wikibot/internal/fetch"
	"github.com/jonathan/wikibot/internal/logger"
	"github.com/jonathan/wikibot/internal/throttle"
)

// fakeWiki serves raw pages and a category listing the way MoinMoin does.
type fakeWiki struct {
	*httptest.Server

	mu       sync.Mutex
	pages    map[string]string
	listing  []string
	requests map[string]int
}

func newFakeWiki(t *testing.T, pages map[string]string, listing ...string) *fakeWiki {
	t.Helper()
	w := &fakeWiki{
		pages:    pages,
		listing:  listing,
		requests: make(map[string]int),
	}
	w.Server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.Close)
	return w
}

func (w *fakeWiki) serve(rw http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	w.mu.Lock()
	w.requests[name]++
	body, ok := w.pages[name]
	listing := w.listing
	w.mu.Unlock()

	if name == DefaultLookupPage {
		rw.Header().Set("Content-Type", "text/html")
		var sb strings.Builder
		sb.WriteString(`<!DOCTYPE html><html><body><div id="content"><div class="searchresults"><ul>`)
		for _, entry := range listing {
			fmt.Fprintf(&sb, `<li><a href="/%s?highlight=CategoryAPI">%s</a></li>`, entry, entry)
		}
		sb.WriteString(`</ul></div></div></body></html>`)
		_, _ = rw.Write([]byte(sb.String()))
		return
	}

	if r.URL.Query().Get("action") != "raw" {
		rw.Header().Set("Content-Type", "text/html")
		_, _ = rw.Write([]byte("<html><body><h1>" + name + "</h1></body></html>"))
		return
	}

	if !ok {
		rw.WriteHeader(http.StatusNotFound)
		_, _ = rw.Write([]byte("Page " + name + " not found"))
		return
	}
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = rw.Write([]byte(body))
}

func (w *fakeWiki) hits(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requests[name]
}

func (w *fakeWiki) setPage(name, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[name] = body
}

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fetcherFunc adapts a function to Fetcher.
type fetcherFunc func(ctx context.Context, uri string) (*fetch.Result, error)

func (f fetcherFunc) Fetch(ctx context.Context, uri string) (*fetch.Result, error) {
	return f(ctx, uri)
}

// countingThrottle records gate calls without ever blocking.
type countingThrottle struct {
	mu       sync.Mutex
	checks   int
	warnings int
}

func (c *countingThrottle) CheckBeforeRequest(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks++
	return false, nil
}

func (c *countingThrottle) CheckForWarning(_ context.Context, text string) bool {
	if !throttle.ContainsWarning(text) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings++
	return true
}

func (c *countingThrottle) Checks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks
}

func disabledThrottle() *throttle.Throttle {
	return throttle.New(throttle.Config{Enabled: false}, logger.NewNop())
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Step: time.Millisecond}
}
