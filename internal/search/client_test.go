package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES answers with canned bodies keyed by request path and records request bodies.
type fakeES struct {
	mu        sync.Mutex
	responses map[string]string
	status    int
	bodies    map[string]string
}

func (f *fakeES) body(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func newFakeES(t *testing.T, responses map[string]string) (*fakeES, *Client) {
	t.Helper()
	f := &fakeES{responses: responses, status: http.StatusOK, bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies[r.URL.Path] = string(b)
		status, resp := f.status, f.responses[r.URL.Path]
		f.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "key", nil)
	require.NoError(t, err)
	return f, c
}

func TestCount(t *testing.T) {
	f, c := newFakeES(t, map[string]string{"/users/_count": `{"count": 42}`})

	n, err := c.Count(context.Background(), "users", Query{"term": map[string]any{"is_deleted": false}})
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.JSONEq(t, `{"query":{"term":{"is_deleted":false}}}`, f.body("/users/_count"))
}

func TestDistinctCount(t *testing.T) {
	_, c := newFakeES(t, map[string]string{
		"/posts/_search": `{"aggregations":{"distinct":{"value":7}}}`,
	})

	n, err := c.DistinctCount(context.Background(), "posts", "user_id.keyword", Query{"match_all": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestMultiCount(t *testing.T) {
	f, c := newFakeES(t, map[string]string{
		"/_msearch": `{"responses":[{"hits":{"total":{"value":3}}},{"hits":{"total":{"value":5}}}]}`,
	})

	counts, err := c.MultiCount(context.Background(), "posts", []Query{
		{"term": map[string]any{"category.keyword": "AI"}},
		{"term": map[string]any{"category.keyword": "Money"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, counts)

	sc := bufio.NewScanner(strings.NewReader(f.body("/_msearch")))
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 4)
	assert.Equal(t, "posts", lines[0]["index"])
	assert.Equal(t, "posts", lines[2]["index"])
}

func TestMultiCountPerQueryError(t *testing.T) {
	_, c := newFakeES(t, map[string]string{
		"/_msearch": `{"responses":[{"hits":{"total":{"value":3}}},{"error":{"type":"index_not_found_exception"}}]}`,
	})

	_, err := c.MultiCount(context.Background(), "posts", []Query{{}, {}})
	assert.ErrorContains(t, err, "index_not_found_exception")
}

func TestDateHistogram(t *testing.T) {
	_, c := newFakeES(t, map[string]string{
		"/posts/_search": `{"aggregations":{"histogram":{"buckets":[
			{"key":1700000000000,"key_as_string":"2023-11-14","doc_count":3,
			 "terms":{"buckets":[{"key":"AI","doc_count":2},{"key":"Money","doc_count":1}]}}
		]}}}`,
	})

	buckets, err := c.DateHistogram(context.Background(), "posts", DateHistogramRequest{
		Field: "created_at", Interval: "1d", TermsField: "category.keyword",
	})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(3), buckets[0].DocCount)
	assert.Equal(t, "2023-11-14", buckets[0].KeyAsString)
	assert.Equal(t, map[string]int64{"AI": 2, "Money": 1}, buckets[0].Categories)
}

func TestBulkIndex(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f, c := newFakeES(t, map[string]string{"/posts/_bulk": `{"errors":false,"items":[]}`})

		err := c.BulkIndex(context.Background(), "posts", []Document{
			{ID: "p1", Source: map[string]any{"category": "AI"}},
		})
		require.NoError(t, err)
		assert.Contains(t, f.body("/posts/_bulk"), `"_id":"p1"`)
	})

	t.Run("item failures", func(t *testing.T) {
		_, c := newFakeES(t, map[string]string{"/posts/_bulk": `{"errors":true,"items":[
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception"}}},
			{"index":{"status":201}}
		]}`})

		err := c.BulkIndex(context.Background(), "posts", []Document{{ID: "a", Source: 1}, {ID: "b", Source: 2}})
		assert.ErrorContains(t, err, "1 of 2")
	})

	t.Run("empty is a no-op", func(t *testing.T) {
		_, c := newFakeES(t, nil)
		assert.NoError(t, c.BulkIndex(context.Background(), "posts", nil))
	})
}

func TestErrorStatus(t *testing.T) {
	f, c := newFakeES(t, map[string]string{"/users/_count": `{"error":{"type":"security_exception"}}`})
	f.mu.Lock()
	f.status = http.StatusUnauthorized
	f.mu.Unlock()

	_, err := c.Count(context.Background(), "users", Query{})
	assert.ErrorContains(t, err, "security_exception")
}
