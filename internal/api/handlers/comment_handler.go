package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/models"
	"github.com/isdelr/blogpost-be/internal/services"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// Create attaches a comment to the post in the URL.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.CreateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	in.PostID = chi.URLParam(r, "id")

	commentID, err := h.service.Create(r.Context(), id, in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"comment_id": commentID})
}

// Update replaces the text of the caller's comment.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.UpdateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	in.CommentID = chi.URLParam(r, "id")

	if err := h.service.Update(r.Context(), id, in); err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, nil)
}

// Delete removes the caller's comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, nil)
}

// ListForPost returns the comments of the post in the URL.
func (h *CommentHandler) ListForPost(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListForPost(r.Context(), chi.URLParam(r, "id"))
	respondComments(w, r, comments, err)
}

// ListMine returns comments left on the caller's posts.
func (h *CommentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	comments, err := h.service.ListOnMyPosts(r.Context(), id)
	respondComments(w, r, comments, err)
}

func respondComments(w http.ResponseWriter, r *http.Request, comments []models.Comment, err error) {
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"comments": comments})
}
