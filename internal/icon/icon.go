// Package icon retrieves integration icons as inline SVG markup.
package icon

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// maxIconBytes bounds how much of an icon response is read.
const maxIconBytes = 256 << 10

// Fallback is used when an integration's icon cannot be fetched.
const Fallback = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M6,2A2,2 0 0,0 4,4V20A2,2 0 0,0 6,22H18A2,2 0 0,0 20,20V8L14,2H6M6,4H13V9H18V20H6V4M8,12V14H16V12H8M8,16V18H13V16H8Z"/></svg>`

// Fetcher returns the inline SVG icon for an integration.
type Fetcher interface {
	Fetch(ctx context.Context, integration string) (string, error)
}

// HTTPFetcher downloads "<BaseURL>/apps/<integration>/img/app.svg".
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher with a short client timeout.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// URL returns the icon location for integration.
func (f *HTTPFetcher) URL(integration string) string {
	return f.BaseURL + "/apps/" + url.PathEscape(integration) + "/img/app.svg"
}

// Fetch implements Fetcher. Any non-200 response is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, integration string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(integration), nil)
	if err != nil {
		return "", fmt.Errorf("icon %s: %w", integration, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("icon %s: %w", integration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("icon %s: unexpected status %d", integration, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return "", fmt.Errorf("icon %s: %w", integration, err)
	}
	svg := strings.TrimSpace(string(body))
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("icon %s: response is not SVG", integration)
	}
	return svg, nil
}

// Reference returns an SVG that embeds the remote icon by URL instead of
// inlining its content.
func Reference(iconURL string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><image href="` + html.EscapeString(iconURL) + `" width="24" height="24"/></svg>`
}

// ReferenceFetcher never downloads icons. Each icon is an SVG whose image
// points at the server's app.svg, so the host loads it when drawing the menu.
type ReferenceFetcher struct {
	urls *HTTPFetcher
}

// NewReferenceFetcher creates a ReferenceFetcher for the server at baseURL.
func NewReferenceFetcher(baseURL string) *ReferenceFetcher {
	return &ReferenceFetcher{urls: NewHTTPFetcher(baseURL)}
}

// Fetch implements Fetcher. It never fails.
func (f *ReferenceFetcher) Fetch(_ context.Context, integration string) (string, error) {
	return Reference(f.urls.URL(integration)), nil
}

// Cache memoizes a Fetcher for the lifetime of one resolution pass. Each
// integration is fetched at most once, concurrent callers share the fetch, and
// failures are cached too.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	svg string
	err error
}

// NewCache wraps fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher, entries: make(map[string]entry)}
}

// Fetch implements Fetcher.
func (c *Cache) Fetch(ctx context.Context, integration string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[integration]; ok {
		c.mu.Unlock()
		return e.svg, e.err
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do(integration, func() (any, error) {
		c.mu.Lock()
		if e, ok := c.entries[integration]; ok {
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		svg, err := c.fetcher.Fetch(ctx, integration)
		e := entry{svg: svg, err: err}
		c.mu.Lock()
		c.entries[integration] = e
		c.mu.Unlock()
		return e, nil
	})
	e := v.(entry)
	return e.svg, e.err
}

// OrFallback returns the fetched icon, or Fallback and the error.
func OrFallback(ctx context.Context, f Fetcher, integration string) (string, error) {
	if f == nil {
		return Fallback, nil
	}
	svg, err := f.Fetch(ctx, integration)
	if err != nil || svg == "" {
		return Fallback, err
	}
	return svg, nil
}

// Static is a Fetcher backed by a fixed map. Missing entries are errors.
type Static map[string]string

// Fetch implements Fetcher.
func (s Static) Fetch(_ context.Context, integration string) (string, error) {
	svg, ok := s[integration]
	if !ok {
		return "", fmt.Errorf("icon %s: not available", integration)
	}
	return svg, nil
}
