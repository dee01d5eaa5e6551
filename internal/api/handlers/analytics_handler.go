package handlers

import (
	"net/http"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/services"
)

// AnalyticsHandler serves aggregate statistics.
type AnalyticsHandler struct {
	service services.AnalyticsServiceProvider
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(service services.AnalyticsServiceProvider) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Categories returns the share of posts per category.
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.CategoryRates(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"data": rates})
}

// Bloggers returns the split between users who post and users who only read.
func (h *AnalyticsHandler) Bloggers(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.BloggerRates(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"data": rates})
}

// Histogram returns post counts over the period named by the interval parameter.
func (h *AnalyticsHandler) Histogram(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.Histogram(r.Context(), r.URL.Query().Get("interval"))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"data": buckets})
}
