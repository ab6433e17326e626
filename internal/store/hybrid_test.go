package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"news-shield/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHybridStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// In-memory Badger so nothing touches disk
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	badgerDB, err := badger.Open(opts)
	require.NoError(t, err)

	// Built directly to skip the on-disk Badger that NewHybridStore opens.
	st := &HybridStore{
		rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		db:  badgerDB,
		now: time.Now,
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func textedResult(url, rating, text string) model.ArticleResult {
	return model.ArticleResult{
		URL:         url,
		Title:       model.StringPtr("Test Article"),
		Rating:      rating,
		Status:      model.StatusSuccess,
		AIAnalysis:  model.StringPtr("SCORE: 10%"),
		TextContent: model.StringPtr(text),
	}
}

func TestHybridStore_Save_And_Get(t *testing.T) {
	st, mr := newTestHybridStore(t)
	ctx := context.Background()

	result := textedResult("https://bbc.com/news/1", "Rating: High trust | AI: 10%", "Big article body")
	require.NoError(t, st.SaveResults(ctx, "elections", []model.ArticleResult{result}))

	id := model.ResultID(result.URL)

	// Redis keeps metadata only
	val, err := mr.Get("result:" + id.String())
	require.NoError(t, err, "Should find result metadata in Redis")

	var meta model.StoredResult
	require.NoError(t, json.Unmarshal([]byte(val), &meta))
	assert.Equal(t, "elections", meta.SearchQuery)
	assert.Equal(t, "Test Article", model.Deref(meta.Title))
	assert.Nil(t, meta.TextContent, "Redis should NOT store the text body")

	// Badger keeps the text
	err = st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id.String()))
		if err != nil {
			return err
		}
		val, _ := item.ValueCopy(nil)
		assert.Equal(t, "Big article body", string(val))
		return nil
	})
	require.NoError(t, err)

	got, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, result.URL, got.URL)
	assert.Equal(t, result.Rating, got.Rating)
	assert.Equal(t, "Big article body", model.Deref(got.TextContent))
}

func TestHybridStore_Get_NotFound(t *testing.T) {
	st, _ := newTestHybridStore(t)

	_, err := st.Get(context.Background(), model.ResultID("https://missing.example"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHybridStore_UpsertByURL(t *testing.T) {
	st, mr := newTestHybridStore(t)
	ctx := context.Background()

	url := "https://bbc.com/news/1"
	require.NoError(t, st.SaveResults(ctx, "first", []model.ArticleResult{textedResult(url, "Rating: High trust", "old text")}))
	require.NoError(t, st.SaveResults(ctx, "second", []model.ArticleResult{model.Failed(url, "Rating: High trust", "timeout")}))

	got, err := st.Get(ctx, model.ResultID(url))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "second", got.SearchQuery)
	assert.Nil(t, got.TextContent, "A failed re-run must drop the old text")

	recent, err := mr.List("list:recent")
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestHybridStore_ListAndStats(t *testing.T) {
	st, _ := newTestHybridStore(t)
	ctx := context.Background()

	results := []model.ArticleResult{
		textedResult("https://bbc.com/a", "Rating: High trust | AI: 5%", "a"),
		textedResult("https://ria.ru/b", "Rating: Low trust / Propaganda (Clickbait: punctuation)", "b"),
		model.Failed("https://unknown.example/c", "Rating: Unknown", "unexpected status 404 Not Found"),
	}
	require.NoError(t, st.SaveResults(ctx, "q", results))

	list, err := st.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first: LPush puts the last saved result at the head.
	assert.Equal(t, "https://unknown.example/c", list[0].URL)
	assert.Equal(t, "https://ria.ru/b", list[1].URL)
	for _, r := range list {
		assert.Nil(t, r.TextContent)
	}

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 3, Trusted: 1, Propaganda: 1}, stats)
}

func TestHybridStore_ClientMode_NoBadger(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Empty badger path, like the 'add' command
	st, err := NewHybridStore(mr.Addr(), "")
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()

	failed := model.Failed("http://example.com", "Rating: Unknown", "timeout")
	assert.NoError(t, st.SaveResults(ctx, "q", []model.ArticleResult{failed}), "Saving metadata in client mode should work")
	assert.True(t, mr.Exists("result:"+model.ResultID(failed.URL).String()))

	err = st.SaveResults(ctx, "q", []model.ArticleResult{textedResult("http://example.com/2", "Rating: Unknown", "body")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badgerdb is not initialized", "Should prevent saving text without disk storage")
}

func TestHybridStore_Queue(t *testing.T) {
	st, _ := newTestHybridStore(t)
	ctx := context.Background()

	require.NoError(t, st.Enqueue(ctx, "https://bbc.com/1"))
	require.NoError(t, st.Enqueue(ctx, "https://bbc.com/2"))

	first, err := st.PopQueue(ctx)
	require.NoError(t, err)
	second, err := st.PopQueue(ctx)
	require.NoError(t, err)

	assert.Equal(t, "https://bbc.com/1", first, "Queue should be FIFO")
	assert.Equal(t, "https://bbc.com/2", second)
}
