package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
)

// FetchTimeout bounds a single page download.
const FetchTimeout = 10 * time.Second

const maxPageBytes = 5 << 20

// Accept-Encoding is left to the transport so gzip bodies are decoded for us.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "ru-RU,ru;q=0.9,uk;q=0.8,en-US;q=0.7,en;q=0.6",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
}

// Page is a downloaded document decoded to UTF-8.
type Page struct {
	HTML string
	URL  *url.URL
}

// Fetcher downloads pages. It lets tests replace the network.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// HTTPFetcher is the real implementation that uses the internet.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: FetchTimeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = body
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	return Page{HTML: string(raw), URL: resp.Request.URL}, nil
}
