package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"news-shield/internal/config"
	"news-shield/internal/model"

	"go.uber.org/zap"
)

const (
	// MaxResults is the largest page the search API returns.
	MaxResults     = 10
	DefaultResults = 5
	requestTimeout = 15 * time.Second
)

var ErrNotConfigured = errors.New("search api key or engine id missing")

type searchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

// Client queries the Google Custom Search JSON API.
type Client struct {
	endpoint string
	apiKey   string
	engineID string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(cfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		http:     &http.Client{Timeout: requestTimeout},
		logger:   logger.With(zap.String("component", "search")),
	}, nil
}

// Search returns up to n candidates for query. No hits is not an error.
func (c *Client) Search(ctx context.Context, query string, n int) ([]model.Candidate, error) {
	if n <= 0 {
		n = DefaultResults
	}
	if n > MaxResults {
		n = MaxResults
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(n))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Searching", zap.String("query", query), zap.Int("num", n))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Debug("Search error body", zap.ByteString("body", body))
		return nil, fmt.Errorf("search api returned %s", resp.Status)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{URL: item.Link, Title: item.Title})
	}
	if len(candidates) == 0 {
		c.logger.Warn("No results found", zap.String("query", query))
	} else {
		c.logger.Info("Search complete", zap.Int("results", len(candidates)))
	}
	return candidates, nil
}
