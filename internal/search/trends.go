package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"news-shield/internal/config"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const (
	feedTimeout     = 15 * time.Second
	minTopicRunes   = 11
	DefaultTopicCap = 5
)

// Trends reads headline topics from a news RSS feed.
type Trends struct {
	feedURL  string
	fallback []string
	parser   *gofeed.Parser
	logger   *zap.Logger
}

func NewTrends(cfg config.TrendsConfig, logger *zap.Logger) *Trends {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trends{
		feedURL:  cfg.FeedURL,
		fallback: cfg.Fallback,
		parser:   gofeed.NewParser(),
		logger:   logger.With(zap.String("component", "trends")),
	}
}

// Top returns up to limit headline topics. An empty feed yields the fallback
// topics; a feed that cannot be fetched is an error.
func (t *Trends) Top(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultTopicCap
	}

	feedCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	feed, err := t.parser.ParseURLWithContext(t.feedURL, feedCtx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", t.feedURL, err)
	}

	topics := make([]string, 0, limit)
	for _, item := range feed.Items {
		if topic := headline(item.Title); utf8.RuneCountInString(topic) >= minTopicRunes {
			topics = append(topics, topic)
		}
		if len(topics) >= limit {
			break
		}
	}

	if len(topics) == 0 {
		t.logger.Warn("Feed returned no topics, using fallback")
		return append([]string(nil), t.fallback...), nil
	}
	t.logger.Info("Topics found", zap.Int("topics", len(topics)))
	return topics, nil
}

// headline strips the trailing " - Publisher" that news aggregators append.
func headline(title string) string {
	if i := strings.Index(title, " - "); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}
