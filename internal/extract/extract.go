package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
)

// MinTextLength is the shortest body text considered usable.
const MinTextLength = 100

// Content is what one page yields. Nil fields mean no strategy succeeded.
type Content struct {
	Title       *string
	Text        string
	TooShort    bool
	PublishedAt *time.Time
}

// page bundles both parsers' views of one document so strategies can share them.
type page struct {
	article *readability.Article
	doc     *goquery.Document
}

type titleStrategy func(p page) string

type rawDateStrategy func(p page) string

// Ordered fallback chains; the first non-empty result wins.
var (
	titleStrategies = []titleStrategy{
		readabilityTitle,
		documentTitle,
		firstHeading,
	}

	rawDateStrategies = []rawDateStrategy{
		timeElementDate,
		metaDate,
	}
)

// Meta tag names consulted for a publish date, in priority order.
var dateMetaNames = []string{
	"article:published_time",
	"datePublished",
	"og:updated_time",
	"og:published_time",
	"pubdate",
}

// Extractor pulls title, text and publish date out of raw HTML.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract runs every strategy chain over html. Only an unparseable document is an error.
func (e *Extractor) Extract(html string, pageURL *url.URL) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Content{}, fmt.Errorf("parse document: %w", err)
	}

	p := page{doc: doc}
	if art, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
		p.article = &art
	}

	var c Content
	c.Title = firstTitle(p)

	text := ""
	if p.article != nil {
		text = normalizeText(p.article.TextContent)
	}
	if utf8.RuneCountInString(text) < MinTextLength {
		c.TooShort = true
	} else {
		c.Text = text
	}

	c.PublishedAt = publishDate(p)
	return c, nil
}

func firstTitle(p page) *string {
	for _, strategy := range titleStrategies {
		if t := strings.TrimSpace(strategy(p)); t != "" {
			return &t
		}
	}
	return nil
}

func readabilityTitle(p page) string {
	if p.article == nil {
		return ""
	}
	return p.article.Title
}

func documentTitle(p page) string {
	return p.doc.Find("title").First().Text()
}

func firstHeading(p page) string {
	return p.doc.Find("h1").First().Text()
}

// publishDate prefers the parser's structured field; otherwise only the first raw
// candidate string found is parsed.
func publishDate(p page) *time.Time {
	if p.article != nil && p.article.PublishedTime != nil && !p.article.PublishedTime.IsZero() {
		t := *p.article.PublishedTime
		return &t
	}

	raw := firstRawDate(p)
	if raw == "" {
		return nil
	}
	return parseDate(raw)
}

func firstRawDate(p page) string {
	for _, strategy := range rawDateStrategies {
		if raw := strings.TrimSpace(strategy(p)); raw != "" {
			return raw
		}
	}
	return ""
}

func timeElementDate(p page) string {
	v, _ := p.doc.Find("time[datetime]").First().Attr("datetime")
	return v
}

func metaDate(p page) string {
	for _, name := range dateMetaNames {
		for _, attr := range []string{"property", "name", "itemprop"} {
			sel := p.doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, name)).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
	}
	return ""
}

func parseDate(raw string) *time.Time {
	t, err := dateparse.ParseAny(raw)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
