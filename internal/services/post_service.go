package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/models"
)

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	Create(ctx context.Context, id auth.Identity, in CreatePostInput) (string, error)
	Update(ctx context.Context, id auth.Identity, in UpdatePostInput) error
	Delete(ctx context.Context, id auth.Identity, postID string) error
	Get(ctx context.Context, postID string) (models.Post, error)
	List(ctx context.Context) ([]models.PostSummary, error)
	ListByCategory(ctx context.Context, category string) ([]models.PostSummary, error)
	ListMine(ctx context.Context, id auth.Identity) ([]models.PostSummary, error)
	Search(ctx context.Context, query string) ([]models.PostSummary, error)
}

// CreatePostInput is the post creation request.
type CreatePostInput struct {
	Title    string `json:"title" validate:"required,title"`
	Body     string `json:"body" validate:"required,postbody"`
	Category string `json:"category" validate:"required,category"`
}

// UpdatePostInput changes a post's title and/or body. Empty fields are left as they are.
type UpdatePostInput struct {
	PostID string `json:"-" validate:"required"`
	Title  string `json:"title" validate:"omitempty,title"`
	Body   string `json:"body" validate:"omitempty,postbody"`
}

const postSummaryColumns = `p.id, p.title, p.category, u.username, p.comment_count, p.created_at, p.updated_at`

// PostService provides business logic for posts.
type PostService struct {
	db      *sql.DB
	deleter SoftDeleterProvider
	feed    FeedPublisher
}

// NewPostService creates a new PostService.
func NewPostService(db *sql.DB, deleter SoftDeleterProvider, feed FeedPublisher) *PostService {
	return &PostService{db: db, deleter: deleter, feed: publisherOrNop(feed)}
}

func postDesign(fe validator.FieldError) *apperr.Error {
	if fe.Tag() == "required" {
		return errMissingInfo()
	}
	return apperr.Validation(apperr.CodePostDesign, "Inappropriate post design")
}

// Create stores a new post owned by the caller and returns its id.
func (s *PostService) Create(ctx context.Context, id auth.Identity, in CreatePostInput) (string, error) {
	if err := check(in, postDesign); err != nil {
		return "", err
	}
	category, _ := models.ParseCategory(in.Category)

	postID := uuid.New().String()
	now := time.Now().UTC()

	// The insert only happens while the caller's session is still the account's current one.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, user_id, title, body, category, comment_count, created_at, updated_at)
		SELECT ?, id, ?, ?, ?, 0, ?, ? FROM users WHERE id = ? AND token = ? AND is_deleted = 0`,
		postID, in.Title, in.Body, category, now, now, id.UserID, id.Token)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("insert post: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return "", apperr.Unauthorized()
	}

	s.feed.Publish(ActionPostCreated, category, models.PostSummary{
		ID: postID, Title: in.Title, Category: category, CreatedAt: now, UpdatedAt: now,
	})
	return postID, nil
}

// Update changes a post owned by the caller.
func (s *PostService) Update(ctx context.Context, id auth.Identity, in UpdatePostInput) error {
	if in.PostID == "" || (in.Title == "" && in.Body == "") {
		return apperr.Validation(apperr.CodeMissingInfo, "Missing information")
	}
	if err := check(in, postDesign); err != nil {
		return err
	}

	var category models.Category
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := auth.CheckOwnership(ctx, tx, postOwnerQuery, in.PostID, id, errPostNotFound()); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
			UPDATE posts SET title = COALESCE(?, title), body = COALESCE(?, body), updated_at = ?
			WHERE id = ? AND is_deleted = 0 RETURNING category`,
			nullIfEmpty(in.Title), nullIfEmpty(in.Body), time.Now().UTC(), in.PostID,
		).Scan(&category)
		if err == sql.ErrNoRows {
			return errPostNotFound()
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("update post: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.feed.Publish(ActionPostUpdated, category, map[string]string{"post_id": in.PostID})
	return nil
}

// Delete removes a post owned by the caller along with its comments.
func (s *PostService) Delete(ctx context.Context, id auth.Identity, postID string) error {
	return s.deleter.DeletePost(ctx, postID, id)
}

// Get returns a live post with its author's username.
func (s *PostService) Get(ctx context.Context, postID string) (models.Post, error) {
	if postID == "" {
		return models.Post{}, apperr.Validation(apperr.CodePostIDRequired, "Post id should be given")
	}

	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.user_id, p.title, p.body, p.category, p.comment_count, u.username, p.created_at, p.updated_at
		FROM posts p JOIN users u ON p.user_id = u.id
		WHERE p.id = ? AND p.is_deleted = 0`, postID,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.Category, &p.CommentCount, &p.AuthorName, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Post{}, errPostNotFound()
	}
	if err != nil {
		return models.Post{}, apperr.Internal(fmt.Errorf("get post: %w", err))
	}
	return p, nil
}

// List returns every live post, most recently updated first.
func (s *PostService) List(ctx context.Context) ([]models.PostSummary, error) {
	return s.listWhere(ctx, "")
}

// ListByCategory returns live posts of one category.
func (s *PostService) ListByCategory(ctx context.Context, category string) ([]models.PostSummary, error) {
	if strings.TrimSpace(category) == "" {
		return nil, apperr.Validation(apperr.CodeMissingInfo, "Missing information")
	}
	c, ok := models.ParseCategory(category)
	if !ok {
		return nil, apperr.Validation(apperr.CodeBadRequest, "Unknown category")
	}
	return s.listWhere(ctx, "AND p.category = ?", c)
}

// ListMine returns the caller's live posts.
func (s *PostService) ListMine(ctx context.Context, id auth.Identity) ([]models.PostSummary, error) {
	return s.listWhere(ctx, "AND p.user_id = ?", id.UserID)
}

// Search returns live posts whose title contains query, ignoring case.
func (s *PostService) Search(ctx context.Context, query string) ([]models.PostSummary, error) {
	pattern := "%" + database.EscapeLike(strings.TrimSpace(query)) + "%"
	return s.listWhere(ctx, `AND p.title LIKE ? ESCAPE '\'`, pattern)
}

func (s *PostService) listWhere(ctx context.Context, filter string, args ...any) ([]models.PostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postSummaryColumns+`
		FROM posts p JOIN users u ON p.user_id = u.id
		WHERE p.is_deleted = 0 `+filter+`
		ORDER BY p.updated_at DESC`, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list posts: %w", err))
	}
	defer rows.Close()

	posts := []models.PostSummary{}
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Category, &p.AuthorName, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return posts, nil
}
