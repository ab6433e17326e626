package model

import (
	"time"

	"github.com/google/uuid"
)

type ResultStatus string

const (
	StatusSuccess ResultStatus = "Success"
	StatusFailed  ResultStatus = "Failed"
)

// Analysis sentinels stored in ArticleResult.AIAnalysis when the service is not called.
const (
	AnalysisSkippedVideo    = "skipped: video"
	AnalysisSkippedTooShort = "skipped: too short"
)

// Candidate is one row of a search result set.
type Candidate struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ArticleResult is the outcome of processing one URL in a pipeline run.
type ArticleResult struct {
	URL           string       `json:"url"`
	Title         *string      `json:"title"`
	PublishedDate *string      `json:"published_date"`
	Rating        string       `json:"rating"`
	Status        ResultStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	AIAnalysis    *string      `json:"ai_analysis"`
	TextContent   *string      `json:"text_content"`
}

// Failed builds a failed result. It never carries text content.
func Failed(rawURL, rating, reason string) ArticleResult {
	return ArticleResult{
		URL:    rawURL,
		Rating: rating,
		Status: StatusFailed,
		Reason: reason,
	}
}

// StatusText renders the status the way reports display it.
func (r ArticleResult) StatusText() string {
	if r.Status == StatusFailed {
		if r.Reason == "" {
			return string(StatusFailed)
		}
		return string(StatusFailed) + ": " + r.Reason
	}
	return string(r.Status)
}

// HasText reports whether the result can feed a cross-check.
func (r ArticleResult) HasText() bool {
	return r.TextContent != nil && *r.TextContent != ""
}

// StoredResult is an ArticleResult as kept by persistence.
type StoredResult struct {
	ArticleResult
	ID          uuid.UUID `json:"id"`
	SearchQuery string    `json:"search_query"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// ResultID derives a stable identifier from the URL so upserts are keyed by URL.
func ResultID(rawURL string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL))
}

// NewStoredResult stamps a result for persistence.
func NewStoredResult(result ArticleResult, query string, at time.Time) StoredResult {
	return StoredResult{
		ArticleResult: result,
		ID:            ResultID(result.URL),
		SearchQuery:   query,
		RetrievedAt:   at,
	}
}

// Stats summarizes stored results by credibility.
type Stats struct {
	Total      int `json:"total"`
	Trusted    int `json:"trusted"`
	Propaganda int `json:"propaganda"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
