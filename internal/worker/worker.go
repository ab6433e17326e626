package worker

import (
	"context"
	"fmt"
	"time"

	"news-shield/internal/analysis"
	"news-shield/internal/extract"
	"news-shield/internal/model"
	"news-shield/internal/rating"

	"go.uber.org/zap"
)

// LinkCheckQuery labels results of single links taken from the queue.
const LinkCheckQuery = "Link Check"

// Analyzer scores an eligible text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
}

// Queue hands out URLs submitted for checking.
type Queue interface {
	PopQueue(ctx context.Context) (string, error)
}

// Sink receives processed results.
type Sink interface {
	SaveResults(ctx context.Context, query string, results []model.ArticleResult) error
}

// Deps wires the collaborators of a Worker. Analyzer may be nil to disable analysis.
type Deps struct {
	Classifier *rating.Classifier
	Clickbait  *rating.Clickbait
	Extractor  *extract.Extractor
	Analyzer   Analyzer
	Fetcher    Fetcher
}

type Worker struct {
	classifier *rating.Classifier
	clickbait  *rating.Clickbait
	extractor  *extract.Extractor
	analyzer   Analyzer
	fetcher    Fetcher
	logger     *zap.Logger
}

// NewWorker fills in the HTTPFetcher and a fresh Extractor when not supplied.
func NewWorker(deps Deps, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = NewHTTPFetcher()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New()
	}
	if deps.Clickbait == nil {
		deps.Clickbait = rating.NewClickbait(nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = rating.NewClassifier(nil, nil, nil)
	}
	return &Worker{
		classifier: deps.Classifier,
		clickbait:  deps.Clickbait,
		extractor:  deps.Extractor,
		analyzer:   deps.Analyzer,
		fetcher:    deps.Fetcher,
		logger:     logger,
	}
}

// Process handles one URL end to end. Every failure ends up in the returned record.
func (w *Worker) Process(ctx context.Context, rawURL string) (result model.ArticleResult) {
	logger := w.logger.With(zap.String("url", rawURL))
	label := rating.Label{Bucket: w.classifier.Classify(rawURL)}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Processing panicked", zap.Any("panic", r))
			result = model.Failed(rawURL, label.String(), fmt.Sprintf("panic: %v", r))
		}
	}()

	logger.Info("Processing started", zap.Stringer("bucket", label.Bucket))

	page, err := w.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		logger.Error("Download failed", zap.Error(err))
		return model.Failed(rawURL, label.String(), err.Error())
	}

	content, err := w.extractor.Extract(page.HTML, page.URL)
	if err != nil {
		logger.Error("Extraction failed", zap.Error(err))
		return model.Failed(rawURL, label.String(), err.Error())
	}

	result = model.ArticleResult{
		URL:    rawURL,
		Title:  content.Title,
		Status: model.StatusSuccess,
	}
	if content.Title == nil {
		logger.Warn("Title not found")
	} else {
		label.Clickbait = w.clickbait.Check(*content.Title)
	}
	if content.PublishedAt != nil {
		iso := content.PublishedAt.Format(time.RFC3339)
		result.PublishedDate = &iso
	} else {
		logger.Warn("Publish date not found")
	}

	switch analysis.Eligibility(rawURL, content.Text) {
	case analysis.SkipVideo:
		result.AIAnalysis = model.StringPtr(model.AnalysisSkippedVideo)
	case analysis.SkipTooShort:
		result.AIAnalysis = model.StringPtr(model.AnalysisSkippedTooShort)
	default:
		text := content.Text
		result.TextContent = &text
		if w.analyzer != nil {
			res, err := w.analyzer.Analyze(ctx, text)
			if err != nil {
				logger.Warn("Analysis failed", zap.Error(err))
				result.AIAnalysis = model.StringPtr(analysis.ErrorText(err))
			} else {
				result.AIAnalysis = model.StringPtr(res.Text)
				label.Score = res.Score
			}
		}
	}

	result.Rating = label.String()
	logger.Info("Processing complete", zap.String("rating", result.Rating))
	return result
}

// Start drains the queue one URL at a time until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, queue Queue, sink Sink) {
	w.logger.Info("Worker started. Waiting for jobs...")

	for {
		rawURL, err := queue.PopQueue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				w.logger.Info("Worker shutting down")
				return
			case <-time.After(time.Second):
			}
			continue
		}

		result := w.Process(ctx, rawURL)
		if sink == nil {
			continue
		}
		if err := sink.SaveResults(ctx, LinkCheckQuery, []model.ArticleResult{result}); err != nil {
			w.logger.Error("Failed to save result", zap.String("url", rawURL), zap.Error(err))
		}
	}
}
