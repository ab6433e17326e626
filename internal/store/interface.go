package store

import (
	"context"
	"errors"
	"strings"

	"news-shield/internal/model"
	"news-shield/internal/rating"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("result not found")
)

// Store persists pipeline results, upserting by URL.
type Store interface {
	SaveResults(ctx context.Context, query string, results []model.ArticleResult) error
	Get(ctx context.Context, id uuid.UUID) (*model.StoredResult, error)
	List(ctx context.Context, limit int) ([]model.StoredResult, error)
	Stats(ctx context.Context) (model.Stats, error)
	Close() error
}

// tally counts stored results per credibility bucket by their rating prefix.
func tally(results []model.StoredResult) model.Stats {
	stats := model.Stats{Total: len(results)}
	for _, r := range results {
		switch {
		case strings.HasPrefix(r.Rating, rating.Trusted.Label()):
			stats.Trusted++
		case strings.HasPrefix(r.Rating, rating.Propaganda.Label()):
			stats.Propaganda++
		}
	}
	return stats
}
