package pipeline

import (
	"context"
	"sync"

	"news-shield/internal/model"
	"news-shield/internal/rating"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of URLs processed at once.
const DefaultConcurrency = 3

// Processor turns one URL into a result. It must not panic or return errors.
type Processor interface {
	Process(ctx context.Context, rawURL string) model.ArticleResult
}

// Persister receives the complete, ordered result list of a run.
type Persister interface {
	SaveResults(ctx context.Context, query string, results []model.ArticleResult) error
}

// Fanout saves to every persister and merges their errors.
type Fanout []Persister

func (f Fanout) SaveResults(ctx context.Context, query string, results []model.ArticleResult) error {
	var errs error
	for _, p := range f {
		errs = multierr.Append(errs, p.SaveResults(ctx, query, results))
	}
	return errs
}

// Runner fans a batch of URLs out to a Processor with bounded parallelism.
type Runner struct {
	processor   Processor
	persister   Persister
	concurrency int64
	classifier  *rating.Classifier
	logger      *zap.Logger
}

// NewRunner builds a Runner. A nil persister skips persistence; concurrency <= 0
// falls back to DefaultConcurrency.
func NewRunner(processor Processor, persister Persister, concurrency int, logger *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		processor:   processor,
		persister:   persister,
		concurrency: int64(concurrency),
		logger:      logger.With(zap.String("component", "pipeline")),
	}
}

// WithClassifier lets the runner rate URLs it could not admit before ctx ended.
func (r *Runner) WithClassifier(c *rating.Classifier) *Runner {
	r.classifier = c
	return r
}

// Run processes urls and returns one result per URL in input order.
func (r *Runner) Run(ctx context.Context, query string, urls []string) []model.ArticleResult {
	results := make([]model.ArticleResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	r.logger.Info("Run started", zap.String("query", query), zap.Int("urls", len(urls)))

	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup
	for i, rawURL := range urls {
		// Acquire may still succeed on a done context when a slot is free.
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			results[i] = model.Failed(rawURL, r.ratingFor(rawURL), err.Error())
			continue
		}

		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = r.processor.Process(ctx, rawURL)
		}(i, rawURL)
	}
	wg.Wait()

	r.persist(ctx, query, results)
	r.logger.Info("Run complete", zap.String("query", query), zap.Int("results", len(results)))
	return results
}

// RunCandidates runs the unique URLs of a search result set, keeping first occurrences.
func (r *Runner) RunCandidates(ctx context.Context, query string, candidates []model.Candidate) []model.ArticleResult {
	seen := make(map[string]struct{}, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		urls = append(urls, c.URL)
	}
	return r.Run(ctx, query, urls)
}

func (r *Runner) persist(ctx context.Context, query string, results []model.ArticleResult) {
	if r.persister == nil {
		return
	}
	// Saving must outlive a cancelled run so partial results are kept.
	if err := r.persister.SaveResults(context.WithoutCancel(ctx), query, results); err != nil {
		for _, e := range multierr.Errors(err) {
			r.logger.Error("Failed to persist results", zap.String("query", query), zap.Error(e))
		}
	}
}

func (r *Runner) ratingFor(rawURL string) string {
	if r.classifier == nil {
		return rating.Unknown.Label()
	}
	return rating.Label{Bucket: r.classifier.Classify(rawURL)}.String()
}
