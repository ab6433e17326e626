package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"news-shield/internal/model"
	"news-shield/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *store.HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewHybridStore(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return NewServer(st, st, zap.NewNop()), st, mr
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, st *store.HybridStore) {
	t.Helper()
	results := []model.ArticleResult{
		{URL: "https://bbc.com/a", Title: model.StringPtr("A"), Rating: "Rating: High trust", Status: model.StatusSuccess},
		model.Failed("https://ria.ru/b", "Rating: Low trust / Propaganda", "timeout"),
	}
	require.NoError(t, st.SaveResults(context.Background(), "q", results))
}

func TestListResults(t *testing.T) {
	s, st, _ := newTestServer(t)
	seed(t, st)

	rec := do(t, s, http.MethodGet, "/api/results?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.StoredResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "https://ria.ru/b", got[0].URL)
}

func TestListResults_InvalidLimit(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/results?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResult(t *testing.T) {
	s, st, _ := newTestServer(t)
	seed(t, st)

	rec := do(t, s, http.MethodGet, "/api/results/"+model.ResultID("https://bbc.com/a").String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.StoredResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "A", model.Deref(got.Title))

	rec = do(t, s, http.MethodGet, "/api/results/"+model.ResultID("https://nope.example").String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/results/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	s, st, _ := newTestServer(t)
	seed(t, st)

	rec := do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.Stats{Total: 2, Trusted: 1, Propaganda: 1}, got)
}

func TestCheck_Enqueues(t *testing.T) {
	s, _, mr := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/check", []byte(`{"url":"https://bbc.com/news/1"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var got checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.ResultID("https://bbc.com/news/1"), got.ID)

	queue, err := mr.List("queue:check")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://bbc.com/news/1"}, queue)
}

func TestCheck_RejectsBadInput(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/check", []byte(`{`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/check", []byte(`{"url":"ftp://x"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/check", []byte(`{"url":""}`)).Code)
}

func TestCheck_WithoutQueue(t *testing.T) {
	_, st, _ := newTestServer(t)
	s := NewServer(st, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/check", []byte(`{"url":"https://bbc.com"}`))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	id := model.ResultID("https://bbc.com/a").String()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/results"},
		{http.MethodPost, "/api/results"},
		{http.MethodDelete, "/api/results/" + id},
		{http.MethodDelete, "/api/stats"},
		{http.MethodPost, "/api/stats"},
		{http.MethodGet, "/api/check"},
		{http.MethodDelete, "/api/check"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
