package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/models"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	Create(ctx context.Context, id auth.Identity, in CreateCommentInput) (string, error)
	Update(ctx context.Context, id auth.Identity, in UpdateCommentInput) error
	Delete(ctx context.Context, id auth.Identity, commentID string) error
	ListForPost(ctx context.Context, postID string) ([]models.Comment, error)
	ListOnMyPosts(ctx context.Context, id auth.Identity) ([]models.Comment, error)
}

// CreateCommentInput is the comment creation request.
type CreateCommentInput struct {
	PostID string `json:"-" validate:"required"`
	Text   string `json:"text" validate:"required,max=5000"`
}

// UpdateCommentInput replaces a comment's text.
type UpdateCommentInput struct {
	CommentID string `json:"-" validate:"required"`
	Text      string `json:"text" validate:"required,max=5000"`
}

// CommentService provides business logic for comments.
type CommentService struct {
	db      *sql.DB
	deleter SoftDeleterProvider
	feed    FeedPublisher
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *sql.DB, deleter SoftDeleterProvider, feed FeedPublisher) *CommentService {
	return &CommentService{db: db, deleter: deleter, feed: publisherOrNop(feed)}
}

// Create attaches a comment to a live post and bumps the post's counter in the same transaction.
func (s *CommentService) Create(ctx context.Context, id auth.Identity, in CreateCommentInput) (string, error) {
	if err := check(in, missingInfo); err != nil {
		return "", err
	}

	commentID := uuid.New().String()
	now := time.Now().UTC()
	var category models.Category

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT category FROM posts WHERE id = ? AND is_deleted = 0", in.PostID,
		).Scan(&category)
		if err == sql.ErrNoRows {
			return errPostNotFound()
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("find post: %w", err))
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, user_id, post_id, text, created_at, updated_at)
			SELECT ?, id, ?, ?, ?, ? FROM users WHERE id = ? AND token = ? AND is_deleted = 0`,
			commentID, in.PostID, in.Text, now, now, id.UserID, id.Token)
		if err != nil {
			return apperr.Internal(fmt.Errorf("insert comment: %w", err))
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return apperr.Unauthorized()
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?", in.PostID); err != nil {
			return apperr.Internal(fmt.Errorf("increment comment count: %w", err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.feed.Publish(ActionCommentCreated, category, models.Comment{
		ID: commentID, UserID: id.UserID, PostID: in.PostID, Text: in.Text, CreatedAt: now, UpdatedAt: now,
	})
	return commentID, nil
}

// Update replaces the text of a comment owned by the caller.
func (s *CommentService) Update(ctx context.Context, id auth.Identity, in UpdateCommentInput) error {
	if err := check(in, missingInfo); err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := auth.CheckOwnership(ctx, tx, commentOwnerQuery, in.CommentID, id, errCommentNotFound()); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE comments SET text = ?, updated_at = ? WHERE id = ? AND is_deleted = 0",
			in.Text, time.Now().UTC(), in.CommentID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("update comment: %w", err))
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return errCommentNotFound()
		}
		return nil
	})
}

// Delete removes a comment owned by the caller.
func (s *CommentService) Delete(ctx context.Context, id auth.Identity, commentID string) error {
	return s.deleter.DeleteComment(ctx, commentID, id)
}

// ListForPost returns the live comments of a live post, newest first.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	if postID == "" {
		return nil, apperr.Validation(apperr.CodePostIDRequired, "Post id should be given")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM posts WHERE id = ? AND is_deleted = 0)", postID).Scan(&exists); err != nil {
		return nil, apperr.Internal(fmt.Errorf("find post: %w", err))
	}
	if !exists {
		return nil, errPostNotFound()
	}

	return s.query(ctx, `
		SELECT c.id, c.user_id, c.post_id, c.text, u.username, p.title, c.created_at, c.updated_at
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ? AND c.is_deleted = 0
		ORDER BY c.updated_at DESC`, postID)
}

// ListOnMyPosts returns live comments left on the caller's live posts.
func (s *CommentService) ListOnMyPosts(ctx context.Context, id auth.Identity) ([]models.Comment, error) {
	return s.query(ctx, `
		SELECT c.id, c.user_id, c.post_id, c.text, u.username, p.title, c.created_at, c.updated_at
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		JOIN users u ON u.id = c.user_id
		WHERE p.user_id = ? AND p.is_deleted = 0 AND c.is_deleted = 0
		ORDER BY c.updated_at DESC`, id.UserID)
}

func (s *CommentService) query(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list comments: %w", err))
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.PostID, &c.Text, &c.Username, &c.PostTitle, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return comments, nil
}
