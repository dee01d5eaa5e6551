package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/models"
	"github.com/isdelr/blogpost-be/internal/services"
)

// PostHandler handles HTTP requests for posts.
type PostHandler struct {
	service services.PostServiceProvider
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider) *PostHandler {
	return &PostHandler{service: service}
}

// Create handles new post creation.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}

	postID, err := h.service.Create(r.Context(), id, in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"post_id": postID})
}

// Get returns a single post.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"post": post})
}

// Update changes the title and/or body of the caller's post.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.UpdatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	in.PostID = chi.URLParam(r, "id")

	if err := h.service.Update(r.Context(), id, in); err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, nil)
}

// Delete removes the caller's post and its comments.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// List returns every live post.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	respondPosts(w, r, posts, err)
}

// ListMine returns the caller's posts.
func (h *PostHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	posts, err := h.service.ListMine(r.Context(), id)
	respondPosts(w, r, posts, err)
}

// ListByCategory returns the posts of one category.
func (h *PostHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	respondPosts(w, r, posts, err)
}

// Search returns posts whose title contains the q parameter.
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	respondPosts(w, r, posts, err)
}

func respondPosts(w http.ResponseWriter, r *http.Request, posts []models.PostSummary, err error) {
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"posts": posts})
}
