package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"news-shield/internal/extract"
	"news-shield/internal/llm"
	"news-shield/internal/rating"

	"go.uber.org/zap"
)

const (
	maxAttempts     = 3
	baseBackoff     = 20 * time.Second
	backoffStep     = 10 * time.Second
	maxPromptRunes  = 3000
	maxScore        = 100
	analysisPrompt  = `You are an expert in media literacy and propaganda detection.
Analyze the news text below for manipulation: emotionally loaded wording, unverified claims,
missing sources, one-sided framing and logical fallacies.

The FIRST line of your answer must be exactly:
SCORE: <credibility from 0 to 100>%%
Then give a short rationale (3-5 sentences) listing the manipulation techniques you found.

TEXT:
%s`
)

// ErrQuotaExhausted is returned when every attempt was rate limited.
var ErrQuotaExhausted = errors.New("analysis quota exhausted")

// Error is a non-retryable analysis failure.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "analysis failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decision says whether a text should be sent for analysis.
type Decision int

const (
	Eligible Decision = iota
	SkipVideo
	SkipTooShort
)

var videoMarkers = []string{"youtube.com", "youtu.be", "vimeo.com", "tiktok.com", "rutube.ru"}

// Eligibility decides without any I/O whether url/text may be analyzed.
func Eligibility(rawURL, text string) Decision {
	host, _ := rating.Host(rawURL)
	for _, marker := range videoMarkers {
		if strings.Contains(host, marker) {
			return SkipVideo
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < extract.MinTextLength {
		return SkipTooShort
	}
	return Eligible
}

// Result is the analysis text with its parsed confidence score, if any.
type Result struct {
	Text  string
	Score *int
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Analyzer scores article texts with the external service and owns the
// rate-limit backoff policy.
type Analyzer struct {
	completer llm.Completer
	sleep     Sleeper
	logger    *zap.Logger
}

func NewAnalyzer(completer llm.Completer, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		completer: completer,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// Backoff returns the wait after the given zero-based attempt.
func Backoff(attempt int) time.Duration {
	return baseBackoff + time.Duration(attempt)*backoffStep
}

// Analyze submits text and returns the scored response. Rate limits are retried
// up to three attempts; anything else fails at once.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	prompt := fmt.Sprintf(analysisPrompt, truncateRunes(text, maxPromptRunes))

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := a.completer.Complete(ctx, prompt)
		if err == nil {
			return Result{Text: resp, Score: ParseScore(resp)}, nil
		}
		if !errors.Is(err, llm.ErrRateLimited) {
			return Result{}, &Error{Err: err}
		}

		wait := Backoff(attempt)
		a.logger.Warn("Analysis rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))
		if err := a.sleep(ctx, wait); err != nil {
			return Result{}, err
		}
	}

	return Result{}, ErrQuotaExhausted
}

var scoreLine = regexp.MustCompile(`(?i)^\**\s*SCORE:\s*\**\s*(\d{1,3})\s*%`)

// ParseScore reads the leading "SCORE: N%" line. Only the first non-empty line counts.
func ParseScore(resp string) *int {
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := scoreLine.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		if n > maxScore {
			n = maxScore
		}
		return &n
	}
	return nil
}

// ErrorText renders an analysis error for the result record.
func ErrorText(err error) string {
	if errors.Is(err, ErrQuotaExhausted) {
		return "error: quota exhausted"
	}
	return "error: " + err.Error()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
