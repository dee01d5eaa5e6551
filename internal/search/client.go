// Package search talks to the Elasticsearch index holding a denormalized copy of users and posts.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/isdelr/blogpost-be/internal/models"
)

// Index names.
const (
	UsersIndex = "users"
	PostsIndex = "posts"
)

// Query is an Elasticsearch query DSL object.
type Query = map[string]any

// Document is one entry for BulkIndex.
type Document struct {
	ID     string
	Source any
}

// DateHistogramRequest describes a date histogram with a terms sub-aggregation.
type DateHistogramRequest struct {
	Query      Query
	Field      string
	Interval   string // calendar_interval, e.g. "1M", "1w", "1d"
	TermsField string
}

// Client wraps the Elasticsearch client with the few calls the service needs.
type Client struct {
	es *elasticsearch.Client
}

// New creates a client for a single node. transport may be nil.
func New(url, apiKey string, transport http.RoundTripper) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		APIKey:    apiKey,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Count returns the number of documents in index matching query.
func (c *Client) Count(ctx context.Context, index string, query Query) (int64, error) {
	body, err := jsonBody(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
		c.es.Count.WithBody(body),
	)
	var out struct {
		Count int64 `json:"count"`
	}
	if err := decode(res, err, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// DistinctCount returns the number of distinct values of field among documents matching query.
func (c *Client) DistinctCount(ctx context.Context, index, field string, query Query) (int64, error) {
	var out struct {
		Aggregations struct {
			Distinct struct {
				Value int64 `json:"value"`
			} `json:"distinct"`
		} `json:"aggregations"`
	}
	err := c.search(ctx, index, map[string]any{
		"size":  0,
		"query": query,
		"aggs": map[string]any{
			"distinct": map[string]any{
				"cardinality": map[string]any{"field": field, "precision_threshold": 40000},
			},
		},
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Aggregations.Distinct.Value, nil
}

// MultiCount runs every query against index in one multi-search and returns the hit totals
// in order.
func (c *Client) MultiCount(ctx context.Context, index string, queries []Query) ([]int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, q := range queries {
		if err := enc.Encode(map[string]any{"index": index}); err != nil {
			return nil, err
		}
		if err := enc.Encode(map[string]any{"size": 0, "track_total_hits": true, "query": q}); err != nil {
			return nil, err
		}
	}

	res, err := c.es.Msearch(&buf, c.es.Msearch.WithContext(ctx))
	var out struct {
		Responses []struct {
			Hits struct {
				Total struct {
					Value int64 `json:"value"`
				} `json:"total"`
			} `json:"hits"`
			Error json.RawMessage `json:"error"`
		} `json:"responses"`
	}
	if err := decode(res, err, &out); err != nil {
		return nil, err
	}
	if len(out.Responses) != len(queries) {
		return nil, fmt.Errorf("elasticsearch: msearch returned %d responses for %d queries", len(out.Responses), len(queries))
	}

	counts := make([]int64, len(queries))
	for i, r := range out.Responses {
		if len(r.Error) > 0 {
			return nil, fmt.Errorf("elasticsearch: msearch query %d: %s", i, r.Error)
		}
		counts[i] = r.Hits.Total.Value
	}
	return counts, nil
}

// DateHistogram buckets matching documents by calendar interval, splitting each bucket by
// TermsField.
func (c *Client) DateHistogram(ctx context.Context, index string, req DateHistogramRequest) ([]models.HistogramBucket, error) {
	var out struct {
		Aggregations struct {
			Histogram struct {
				Buckets []struct {
					Key         int64  `json:"key"`
					KeyAsString string `json:"key_as_string"`
					DocCount    int64  `json:"doc_count"`
					Terms       struct {
						Buckets []struct {
							Key      string `json:"key"`
							DocCount int64  `json:"doc_count"`
						} `json:"buckets"`
					} `json:"terms"`
				} `json:"buckets"`
			} `json:"histogram"`
		} `json:"aggregations"`
	}
	err := c.search(ctx, index, map[string]any{
		"size":  0,
		"query": req.Query,
		"aggs": map[string]any{
			"histogram": map[string]any{
				"date_histogram": map[string]any{
					"field":             req.Field,
					"calendar_interval": req.Interval,
				},
				"aggs": map[string]any{
					"terms": map[string]any{"terms": map[string]any{"field": req.TermsField}},
				},
			},
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	buckets := make([]models.HistogramBucket, 0, len(out.Aggregations.Histogram.Buckets))
	for _, b := range out.Aggregations.Histogram.Buckets {
		hb := models.HistogramBucket{
			Key:         b.Key,
			KeyAsString: b.KeyAsString,
			DocCount:    b.DocCount,
			Categories:  make(map[string]int64, len(b.Terms.Buckets)),
		}
		for _, t := range b.Terms.Buckets {
			hb.Categories[t.Key] = t.DocCount
		}
		buckets = append(buckets, hb)
	}
	return buckets, nil
}

// BulkIndex upserts docs into index by id.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": index, "_id": d.ID}}); err != nil {
			return err
		}
		if err := enc.Encode(d.Source); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(&buf, c.es.Bulk.WithContext(ctx), c.es.Bulk.WithIndex(index))
	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := decode(res, err, &out); err != nil {
		return err
	}
	if !out.Errors {
		return nil
	}

	failed := 0
	var first json.RawMessage
	for _, item := range out.Items {
		for _, result := range item {
			if len(result.Error) > 0 {
				if first == nil {
					first = result.Error
				}
				failed++
			}
		}
	}
	return fmt.Errorf("elasticsearch: bulk indexing into %s failed for %d of %d documents: %s", index, failed, len(docs), first)
}

func (c *Client) search(ctx context.Context, index string, body map[string]any, out any) error {
	r, err := jsonBody(body)
	if err != nil {
		return err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(r),
	)
	return decode(res, err, out)
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode elasticsearch request: %w", err)
	}
	return bytes.NewReader(b), nil
}

func decode(res *esapi.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("elasticsearch request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: %s", res.String())
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode elasticsearch response: %w", err)
	}
	return nil
}
