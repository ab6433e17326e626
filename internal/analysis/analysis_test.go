package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"news-shield/internal/llm"
	"news-shield/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter replays responses in order and records prompts.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "SCORE: 50%\nfine", nil
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestAnalyzer(c llm.Completer, s *recordingSleeper) *Analyzer {
	a := NewAnalyzer(c, nil)
	a.sleep = s.sleep
	return a
}

var longText = strings.Repeat("Officials confirmed the figures at a press briefing on Monday. ", 5)

func TestAnalyze_Success(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"SCORE: 72%\nMostly factual, one loaded adjective."}}
	s := &recordingSleeper{}

	res, err := newTestAnalyzer(c, s).Analyze(context.Background(), longText)
	require.NoError(t, err)

	require.NotNil(t, res.Score)
	assert.Equal(t, 72, *res.Score)
	assert.Contains(t, res.Text, "Mostly factual")
	assert.Empty(t, s.waits)
	assert.Equal(t, 1, c.calls())
}

func TestAnalyze_SustainedRateLimit(t *testing.T) {
	c := &scriptedCompleter{errs: []error{llm.ErrRateLimited, llm.ErrRateLimited, llm.ErrRateLimited, nil}}
	s := &recordingSleeper{}

	_, err := newTestAnalyzer(c, s).Analyze(context.Background(), longText)

	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, 3, c.calls(), "no fourth attempt")
	assert.Equal(t, []time.Duration{20 * time.Second, 30 * time.Second, 40 * time.Second}, s.waits)
}

func TestAnalyze_RecoversAfterRateLimit(t *testing.T) {
	c := &scriptedCompleter{
		errs:      []error{llm.ErrRateLimited, nil},
		responses: []string{"", "SCORE: 15%\nheavy propaganda"},
	}
	s := &recordingSleeper{}

	res, err := newTestAnalyzer(c, s).Analyze(context.Background(), longText)
	require.NoError(t, err)

	assert.Equal(t, 15, *res.Score)
	assert.Equal(t, []time.Duration{20 * time.Second}, s.waits)
}

func TestAnalyze_OtherErrorIsNotRetried(t *testing.T) {
	boom := errors.New("invalid payload")
	c := &scriptedCompleter{errs: []error{boom}}
	s := &recordingSleeper{}

	_, err := newTestAnalyzer(c, s).Analyze(context.Background(), longText)

	var aErr *Error
	require.ErrorAs(t, err, &aErr)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, 1, c.calls())
	assert.Empty(t, s.waits)
}

func TestAnalyze_CancelledDuringBackoff(t *testing.T) {
	c := &scriptedCompleter{errs: []error{llm.ErrRateLimited}}
	a := NewAnalyzer(c, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, longText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_PromptTruncatedTo3000Runes(t *testing.T) {
	c := &scriptedCompleter{}
	text := strings.Repeat("ж", 5000)

	_, err := newTestAnalyzer(c, &recordingSleeper{}).Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 3000, strings.Count(c.prompts[0], "ж"))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		resp string
		want int
		ok   bool
	}{
		{"SCORE: 85%\nrationale", 85, true},
		{"\n\n  score:7 %\nrationale", 7, true},
		{"**SCORE: 40%**\nrationale", 40, true},
		{"SCORE: 250%", 100, true},
		{"Rationale first\nSCORE: 60%", 0, false},
		{"The text is 90% opinion", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got := ParseScore(tt.resp)
		if !tt.ok {
			assert.Nil(t, got, tt.resp)
			continue
		}
		require.NotNil(t, got, tt.resp)
		assert.Equal(t, tt.want, *got, tt.resp)
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 20*time.Second, Backoff(0))
	assert.Equal(t, 30*time.Second, Backoff(1))
	assert.Equal(t, 40*time.Second, Backoff(2))
}

func TestEligibility(t *testing.T) {
	assert.Equal(t, SkipVideo, Eligibility("https://www.youtube.com/watch?v=1", longText))
	assert.Equal(t, SkipVideo, Eligibility("https://m.youtube.com/watch?v=1", ""))
	assert.Equal(t, SkipTooShort, Eligibility("https://news.example/a", "short"))
	assert.Equal(t, SkipTooShort, Eligibility("https://news.example/a", ""))
	assert.Equal(t, Eligible, Eligibility("https://news.example/a", longText))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "error: quota exhausted", ErrorText(ErrQuotaExhausted))
	assert.Equal(t, "error: analysis failed: nope", ErrorText(&Error{Err: errors.New("nope")}))
}

func texted(url, text string) model.ArticleResult {
	return model.ArticleResult{URL: url, Status: model.StatusSuccess, TextContent: model.StringPtr(text)}
}

func TestSynthesize_InsufficientData(t *testing.T) {
	c := &scriptedCompleter{}
	cc := NewCrossChecker(c, nil)

	assert.Equal(t, InsufficientData, cc.Synthesize(context.Background(), nil))
	assert.Equal(t, InsufficientData, cc.Synthesize(context.Background(), []model.ArticleResult{
		texted("https://a.example/1", longText),
		model.Failed("https://b.example/2", "Rating: Unknown", "timeout"),
	}))
	assert.Equal(t, 0, c.calls())
}

func TestSynthesize_SingleCallWithLabeledSources(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"## Agreed facts\n..."}}
	cc := NewCrossChecker(c, nil)

	out := cc.Synthesize(context.Background(), []model.ArticleResult{
		texted("https://www.bbc.com/news/1", strings.Repeat("b", 5000)),
		model.Failed("https://down.example/", "Rating: Unknown", "timeout"),
		texted("https://rt.com/news/2", "second text"),
	})

	assert.Equal(t, "## Agreed facts\n...", out)
	require.Equal(t, 1, c.calls())
	prompt := c.prompts[0]
	assert.Contains(t, prompt, "SOURCE 1: bbc.com")
	assert.Contains(t, prompt, "SOURCE 2: rt.com")
	assert.NotContains(t, prompt, "down.example")
	assert.Contains(t, prompt, strings.Repeat("b", 4000))
	assert.NotContains(t, prompt, strings.Repeat("b", 4001))
}

func TestSynthesize_FailureIsNotRetried(t *testing.T) {
	c := &scriptedCompleter{errs: []error{llm.ErrRateLimited}}
	cc := NewCrossChecker(c, nil)

	out := cc.Synthesize(context.Background(), []model.ArticleResult{
		texted("https://a.example/1", "one"),
		texted("https://b.example/2", "two"),
	})

	assert.True(t, strings.HasPrefix(out, "Cross-check failed: "))
	assert.Equal(t, 1, c.calls())
}

func TestDigest(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"digest"}}
	d := NewDigester(c, nil)

	assert.Equal(t, NoDigestData, d.Generate(context.Background(), nil, 50))

	out := d.Generate(context.Background(), []model.ArticleResult{texted("https://a.example/1", "one")}, 90)
	assert.Equal(t, "digest", out)
	assert.Contains(t, c.prompts[0], "extremely dry")
	assert.Contains(t, c.prompts[0], "90/100")
}

func TestToneFor(t *testing.T) {
	assert.Equal(t, narrativeTone, toneFor(10))
	assert.Equal(t, neutralTone, toneFor(30))
	assert.Equal(t, dryTone, toneFor(70))
}
