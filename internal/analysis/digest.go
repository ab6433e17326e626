package analysis

import (
	"context"
	"fmt"
	"strings"

	"news-shield/internal/llm"
	"news-shield/internal/model"

	"go.uber.org/zap"
)

// NoDigestData is returned when no result carries text.
const NoDigestData = "No extracted texts to build a digest from."

const (
	maxDigestSources = 5
	maxDigestRunes   = 2000
)

const digestPrompt = `You are a news desk editor. Synthesize ONE briefing from the sources below.

SOURCES:
%s

SETTINGS:
Noise filter level: %d/100.
%s

Write the briefing in Russian using Markdown.`

const (
	narrativeTone = `Tone: narrative and contextual. Tell the story, explain why it matters and give background.`
	neutralTone   = `Tone: businesslike and neutral. Write a classic news item (who, what, where, when, why). Drop obvious propaganda but keep the substance of statements.`
	dryTone       = `Tone: extremely dry and factual. No adjectives, opinions or emotions.
Keep only dates, numbers, names, concrete actions and locations, as a bullet list.
Mark any fact not backed by a number or document as "Claim".`
)

// Digester turns several texts into one briefing at a chosen noise-filter level.
type Digester struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewDigester(completer llm.Completer, logger *zap.Logger) *Digester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Digester{completer: completer, logger: logger}
}

// Generate builds a digest from up to five texted results. Level is clamped to 0..100.
func (d *Digester) Generate(ctx context.Context, results []model.ArticleResult, level int) string {
	sources := withText(results)
	if len(sources) == 0 {
		return NoDigestData
	}
	if len(sources) > maxDigestSources {
		sources = sources[:maxDigestSources]
	}
	level = min(max(level, 0), 100)

	var b strings.Builder
	for i, r := range sources {
		title := model.Deref(r.Title)
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&b, "\n=== SOURCE %d: %s ===\n%s\n", i+1, title, truncateRunes(*r.TextContent, maxDigestRunes))
	}

	resp, err := d.completer.Complete(ctx, fmt.Sprintf(digestPrompt, b.String(), level, toneFor(level)))
	if err != nil {
		d.logger.Error("Digest generation failed", zap.Error(err))
		return "Digest failed: " + err.Error()
	}
	return resp
}

func toneFor(level int) string {
	switch {
	case level < 30:
		return narrativeTone
	case level < 70:
		return neutralTone
	default:
		return dryTone
	}
}
