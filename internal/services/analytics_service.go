package services

import (
	"context"
	"errors"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/models"
	"github.com/isdelr/blogpost-be/internal/search"
)

// ErrIndexDisabled is returned when no search index is configured.
var ErrIndexDisabled = errors.New("search index is not configured")

// Index is the read-only aggregation surface of the search index.
type Index interface {
	Count(ctx context.Context, index string, query search.Query) (int64, error)
	DistinctCount(ctx context.Context, index, field string, query search.Query) (int64, error)
	MultiCount(ctx context.Context, index string, queries []search.Query) ([]int64, error)
	DateHistogram(ctx context.Context, index string, req search.DateHistogramRequest) ([]models.HistogramBucket, error)
}

// AnalyticsServiceProvider defines the interface for analytics.
type AnalyticsServiceProvider interface {
	CategoryRates(ctx context.Context) (models.CategoryRates, error)
	BloggerRates(ctx context.Context) (models.BloggerRates, error)
	Histogram(ctx context.Context, period string) ([]models.HistogramBucket, error)
}

type histogramWindow struct {
	interval string
	from     string
}

// Histogram periods accepted from clients.
var histogramWindows = map[string]histogramWindow{
	"This Year":  {interval: "1M", from: "now-12M"},
	"This Month": {interval: "1w", from: "now-4w"},
	"This Week":  {interval: "1d", from: "now-7d"},
}

// AnalyticsService computes aggregate rates from the search index.
type AnalyticsService struct {
	index Index
}

// NewAnalyticsService creates a new AnalyticsService. A nil index disables every query.
func NewAnalyticsService(index Index) *AnalyticsService {
	return &AnalyticsService{index: index}
}

func liveDocs(extra ...search.Query) search.Query {
	must := append([]search.Query{{"term": map[string]any{"is_deleted": false}}}, extra...)
	return search.Query{"bool": map[string]any{"must": must}}
}

// CategoryRates returns the share of live posts in each category.
func (s *AnalyticsService) CategoryRates(ctx context.Context) (models.CategoryRates, error) {
	if s.index == nil {
		return models.CategoryRates{}, apperr.Internal(ErrIndexDisabled)
	}

	queries := make([]search.Query, len(models.Categories))
	for i, c := range models.Categories {
		queries[i] = liveDocs(search.Query{"term": map[string]any{"category.keyword": string(c)}})
	}
	counts, err := s.index.MultiCount(ctx, search.PostsIndex, queries)
	if err != nil {
		return models.CategoryRates{}, apperr.Internal(err)
	}

	var total int64
	byCategory := make(map[models.Category]int64, len(counts))
	for i, c := range models.Categories {
		byCategory[c] = counts[i]
		total += counts[i]
	}

	return models.CategoryRates{
		AI:         rate(byCategory[models.CategoryAI], total),
		Technology: rate(byCategory[models.CategoryTechnology], total),
		Business:   rate(byCategory[models.CategoryBusiness], total),
		Money:      rate(byCategory[models.CategoryMoney], total),
	}, nil
}

// BloggerRates splits live users into bloggers (at least one live post) and viewers.
func (s *AnalyticsService) BloggerRates(ctx context.Context) (models.BloggerRates, error) {
	if s.index == nil {
		return models.BloggerRates{}, apperr.Internal(ErrIndexDisabled)
	}

	total, err := s.index.Count(ctx, search.UsersIndex, liveDocs())
	if err != nil {
		return models.BloggerRates{}, apperr.Internal(err)
	}
	bloggers, err := s.index.DistinctCount(ctx, search.PostsIndex, "user_id.keyword", liveDocs())
	if err != nil {
		return models.BloggerRates{}, apperr.Internal(err)
	}
	// The index lags the store; never report more bloggers than users.
	if bloggers > total {
		bloggers = total
	}

	return models.BloggerRates{
		Blogger: rate(bloggers, total),
		Viewer:  rate(total-bloggers, total),
	}, nil
}

// Histogram buckets live posts created in period by interval and category.
func (s *AnalyticsService) Histogram(ctx context.Context, period string) ([]models.HistogramBucket, error) {
	w, ok := histogramWindows[period]
	if !ok {
		return nil, apperr.Validation(apperr.CodeUnknownInterval, "Unknown interval")
	}
	if s.index == nil {
		return nil, apperr.Internal(ErrIndexDisabled)
	}

	buckets, err := s.index.DateHistogram(ctx, search.PostsIndex, search.DateHistogramRequest{
		Query:      liveDocs(search.Query{"range": map[string]any{"created_at": map[string]any{"gte": w.from, "lt": "now"}}}),
		Field:      "created_at",
		Interval:   w.interval,
		TermsField: "category.keyword",
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return buckets, nil
}

func rate(n, total int64) models.Rate {
	if total == 0 {
		return models.Rate{Real: n}
	}
	return models.Rate{Rate: float64(n) / float64(total), Real: n}
}
