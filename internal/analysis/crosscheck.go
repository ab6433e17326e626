package analysis

import (
	"context"
	"fmt"
	"strings"

	"news-shield/internal/llm"
	"news-shield/internal/model"
	"news-shield/internal/rating"

	"go.uber.org/zap"
)

// InsufficientData is returned instead of a comparison when fewer than two texts exist.
const InsufficientData = "Cross-check needs at least 2 sources with extracted text."

const (
	minCrossCheckSources = 2
	maxCrossCheckRunes   = 4000
)

const crossCheckPrompt = `You are an investigative editor comparing how different outlets cover the same story.
Below are %d articles, each labeled with its source.

Answer in Markdown with these sections:
1. Agreed facts: what all sources confirm.
2. Narrative differences: how framing, emphasis and wording differ between sources.
3. Contradictions: statements that directly conflict, naming the sources.
4. Verdict: which source is the most neutral and why.
%s`

// CrossChecker asks the analysis service to compare several sources at once.
type CrossChecker struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewCrossChecker(completer llm.Completer, logger *zap.Logger) *CrossChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrossChecker{completer: completer, logger: logger}
}

// Synthesize compares the texted results. It never returns an error: failures are
// reported in the returned string.
func (c *CrossChecker) Synthesize(ctx context.Context, results []model.ArticleResult) string {
	sources := withText(results)
	if len(sources) < minCrossCheckSources {
		return InsufficientData
	}

	prompt := BuildCrossCheckPrompt(sources)
	c.logger.Info("Cross-checking sources", zap.Int("sources", len(sources)))

	resp, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.logger.Error("Cross-check failed", zap.Error(err))
		return "Cross-check failed: " + err.Error()
	}
	return resp
}

// BuildCrossCheckPrompt labels every text by its host.
func BuildCrossCheckPrompt(sources []model.ArticleResult) string {
	var b strings.Builder
	for i, r := range sources {
		host, ok := rating.Host(r.URL)
		if !ok {
			host = r.URL
		}
		fmt.Fprintf(&b, "\n=== SOURCE %d: %s ===\n%s\n", i+1, host, truncateRunes(*r.TextContent, maxCrossCheckRunes))
	}
	return fmt.Sprintf(crossCheckPrompt, len(sources), b.String())
}

func withText(results []model.ArticleResult) []model.ArticleResult {
	out := make([]model.ArticleResult, 0, len(results))
	for _, r := range results {
		if r.HasText() {
			out = append(out, r)
		}
	}
	return out
}
