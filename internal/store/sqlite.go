package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"news-shield/internal/model"
	"news-shield/internal/rating"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const articlesTable = "articles"

const createArticles = `CREATE TABLE IF NOT EXISTS articles (
	url            TEXT PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	title          TEXT,
	published_date TEXT,
	rating         TEXT NOT NULL,
	status         TEXT NOT NULL,
	reason         TEXT,
	search_query   TEXT,
	retrieved_at   TEXT NOT NULL,
	ai_analysis    TEXT,
	text_content   TEXT
)`

const upsertSuffix = `ON CONFLICT(url) DO UPDATE SET
	title = excluded.title,
	published_date = excluded.published_date,
	rating = excluded.rating,
	status = excluded.status,
	reason = excluded.reason,
	search_query = excluded.search_query,
	retrieved_at = excluded.retrieved_at,
	ai_analysis = excluded.ai_analysis,
	text_content = excluded.text_content`

var articleColumns = []string{
	"url", "id", "title", "published_date", "rating", "status", "reason",
	"search_query", "retrieved_at", "ai_analysis", "text_content",
}

// SQLStore keeps results in one SQLite table keyed by URL.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer keeps in-memory databases on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createArticles); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// SaveResults upserts all results in one transaction.
func (s *SQLStore) SaveResults(ctx context.Context, query string, results []model.ArticleResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	at := s.now()
	for _, r := range results {
		stored := model.NewStoredResult(r, query, at)
		_, err := sq.Insert(articlesTable).
			Columns(articleColumns...).
			Values(
				stored.URL,
				stored.ID.String(),
				nullable(stored.Title),
				nullable(stored.PublishedDate),
				stored.Rating,
				string(stored.Status),
				stored.Reason,
				stored.SearchQuery,
				stored.RetrievedAt.UTC().Format(time.RFC3339Nano),
				nullable(stored.AIAnalysis),
				nullable(stored.TextContent),
			).
			Suffix(upsertSuffix).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*model.StoredResult, error) {
	row := sq.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"id": id.String()}).
		RunWith(s.db).
		QueryRowContext(ctx)

	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns the newest results first, without texts.
func (s *SQLStore) List(ctx context.Context, limit int) ([]model.StoredResult, error) {
	if limit <= 0 {
		return []model.StoredResult{}, nil
	}

	rows, err := sq.Select(articleColumns...).
		From(articlesTable).
		OrderBy("retrieved_at DESC", "url").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make([]model.StoredResult, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.TextContent = nil
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return results, nil
}

func (s *SQLStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	var err error

	if stats.Total, err = s.count(ctx, nil); err != nil {
		return model.Stats{}, err
	}
	if stats.Trusted, err = s.count(ctx, sq.Like{"rating": rating.Trusted.Label() + "%"}); err != nil {
		return model.Stats{}, err
	}
	if stats.Propaganda, err = s.count(ctx, sq.Like{"rating": rating.Propaganda.Label() + "%"}); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

func (s *SQLStore) count(ctx context.Context, pred sq.Sqlizer) (int, error) {
	q := sq.Select("COUNT(*)").From(articlesTable)
	if pred != nil {
		q = q.Where(pred)
	}

	var n int
	if err := q.RunWith(s.db).QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (model.StoredResult, error) {
	var (
		r                                          model.StoredResult
		id, status, retrievedAt                    string
		title, published, reason, query, ai, text sql.NullString
	)
	err := row.Scan(&r.URL, &id, &title, &published, &r.Rating, &status, &reason, &query, &retrievedAt, &ai, &text)
	if err != nil {
		return model.StoredResult{}, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return model.StoredResult{}, fmt.Errorf("parse id: %w", err)
	}
	if r.RetrievedAt, err = time.Parse(time.RFC3339Nano, retrievedAt); err != nil {
		return model.StoredResult{}, fmt.Errorf("parse retrieved_at: %w", err)
	}
	r.Status = model.ResultStatus(status)
	r.Reason = reason.String
	r.SearchQuery = query.String
	r.Title = fromNullable(title)
	r.PublishedDate = fromNullable(published)
	r.AIAnalysis = fromNullable(ai)
	r.TextContent = fromNullable(text)
	return r, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
