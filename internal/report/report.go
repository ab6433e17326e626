package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"news-shield/internal/analysis"
	"news-shield/internal/model"
	"news-shield/internal/rating"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	jsonFile     = "report.json"
	csvFile      = "report.csv"
	markdownFile = "report.md"

	maxAnalysisRunes = 600
)

var csvHeader = []string{"url", "title", "published_date", "rating", "status", "ai_analysis"}

var scoreLine = regexp.MustCompile(`(?i)\**\s*SCORE:\s*\**\s*\d{1,3}\s*%?\**`)

// document is the JSON report layout.
type document struct {
	Query       string                `json:"query"`
	GeneratedAt time.Time             `json:"generated_at"`
	Results     []model.ArticleResult `json:"results"`
}

// Writer saves run reports as files in one directory. Each run overwrites the previous one.
type Writer struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, now: time.Now, logger: logger}
}

// SaveResults writes the JSON and CSV reports.
func (w *Writer) SaveResults(_ context.Context, query string, results []model.ArticleResult) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	err := multierr.Combine(
		w.writeJSON(query, results),
		w.writeCSV(results),
	)
	if err == nil {
		w.logger.Info("Report saved", zap.String("dir", w.dir), zap.Int("results", len(results)))
	}
	return err
}

func (w *Writer) writeJSON(query string, results []model.ArticleResult) error {
	data, err := json.MarshalIndent(document{
		Query:       query,
		GeneratedAt: w.now().UTC(),
		Results:     results,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(filepath.Join(w.dir, jsonFile), data, 0o644)
}

func (w *Writer) writeCSV(results []model.ArticleResult) (err error) {
	f, err := os.Create(filepath.Join(w.dir, csvFile))
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.URL,
			model.Deref(r.Title),
			model.Deref(r.PublishedDate),
			r.Rating,
			r.StatusText(),
			model.Deref(r.AIAnalysis),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown saves a human-readable report with the cross-check summary.
func (w *Writer) WriteMarkdown(query string, results []model.ArticleResult, crossCheck string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(w.dir, markdownFile)
	if err := os.WriteFile(path, []byte(Markdown(query, results, crossCheck, w.now())), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

// Markdown renders the report. Results without a title are left out.
func Markdown(query string, results []model.ArticleResult, crossCheck string, at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# News analysis: %s\n\n", query)
	fmt.Fprintf(&b, "**Generated**: %s  \n", at.Format("January 2, 2006 15:04 MST"))
	fmt.Fprintf(&b, "**Sources**: %d\n\n", len(results))

	switch {
	case crossCheck == "":
	case crossCheck == analysis.InsufficientData:
		b.WriteString("> Cross-check skipped: not enough data.\n\n")
	default:
		b.WriteString("## Cross-check\n\n")
		b.WriteString(strings.TrimSpace(crossCheck))
		b.WriteString("\n\n")
	}

	b.WriteString("## Sources\n\n")
	n := 0
	for _, r := range results {
		if r.Title == nil {
			continue
		}
		n++
		host, ok := rating.Host(r.URL)
		if !ok {
			host = r.URL
		}
		fmt.Fprintf(&b, "### %d. [%s](%s)\n\n", n, *r.Title, r.URL)
		fmt.Fprintf(&b, "**Source**: %s | **Status**: %s\n\n", host, r.StatusText())
		fmt.Fprintf(&b, "%s %s\n\n", icon(r.Rating), r.Rating)

		if summary := analysisSummary(r.AIAnalysis); summary != "" {
			b.WriteString(summary)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func icon(label string) string {
	switch {
	case strings.HasPrefix(label, rating.Trusted.Label()):
		return "✅"
	case strings.HasPrefix(label, rating.Propaganda.Label()):
		return "⛔"
	case strings.HasPrefix(label, rating.Platform.Label()):
		return "🔸"
	default:
		return "⚪"
	}
}

// analysisSummary drops sentinels and the score line, and shortens long answers.
func analysisSummary(text *string) string {
	if text == nil {
		return ""
	}
	s := *text
	if strings.HasPrefix(s, "skipped:") || strings.HasPrefix(s, "error:") {
		return ""
	}
	s = strings.TrimSpace(scoreLine.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > maxAnalysisRunes {
		s = string([]rune(s)[:maxAnalysisRunes]) + "..."
	}
	return s
}
