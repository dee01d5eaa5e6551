package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/models"
)

// Owner lookups for ownership checks. Each selects the owner's id and current token of a
// live row.
const (
	postOwnerQuery = `SELECT u.id, u.token FROM posts p JOIN users u ON u.id = p.user_id
		WHERE p.id = ? AND p.is_deleted = 0`
	commentOwnerQuery = `SELECT u.id, u.token FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ? AND c.is_deleted = 0`
	accountOwnerQuery = `SELECT id, token FROM users WHERE id = ? AND is_deleted = 0`
)

// SoftDeleterProvider defines the cascading soft-delete operations.
type SoftDeleterProvider interface {
	DeleteUser(ctx context.Context, id auth.Identity) error
	DeletePost(ctx context.Context, postID string, id auth.Identity) error
	DeleteComment(ctx context.Context, commentID string, id auth.Identity) error
}

// SoftDeleter marks rows deleted and cascades to their children in one transaction.
// Every row touched by one call shares the same deleted_at.
type SoftDeleter struct {
	db     *sql.DB
	tokens TokenIssuer
	feed   FeedPublisher
	now    func() time.Time
}

// NewSoftDeleter creates a new SoftDeleter.
func NewSoftDeleter(db *sql.DB, tokens TokenIssuer, feed FeedPublisher) *SoftDeleter {
	return &SoftDeleter{db: db, tokens: tokens, feed: publisherOrNop(feed), now: time.Now}
}

// DeleteUser deletes the account, every post it owns, and every comment it wrote or that was
// attached to one of its posts. Comment counters of other users' posts lose the comments
// this user had left on them. Only the account's current session may delete it.
func (d *SoftDeleter) DeleteUser(ctx context.Context, id auth.Identity) error {
	userID := id.UserID
	return database.WithTx(ctx, d.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := auth.CheckOwnership(ctx, tx, accountOwnerQuery, userID, id, errAccountNotFound()); err != nil {
			return err
		}
		deletedAt := d.now().UTC()

		res, err := tx.ExecContext(ctx,
			"UPDATE users SET is_deleted = 1, deleted_at = ? WHERE id = ? AND token = ? AND is_deleted = 0",
			deletedAt, userID, id.Token)
		if err != nil {
			return apperr.Internal(fmt.Errorf("delete user: %w", err))
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return apperr.Unauthorized()
		}

		if err := d.tokens.Revoke(ctx, tx, userID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE posts SET is_deleted = 1, deleted_at = ? WHERE user_id = ? AND is_deleted = 0",
			deletedAt, userID); err != nil {
			return apperr.Internal(fmt.Errorf("delete user posts: %w", err))
		}

		// Only live posts of other users are left to adjust at this point.
		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET comment_count = comment_count - (
				SELECT COUNT(*) FROM comments c
				WHERE c.post_id = posts.id AND c.user_id = ? AND c.is_deleted = 0
			)
			WHERE is_deleted = 0 AND id IN (
				SELECT post_id FROM comments WHERE user_id = ? AND is_deleted = 0
			)`, userID, userID); err != nil {
			return apperr.Internal(fmt.Errorf("adjust comment counts: %w", err))
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE comments SET is_deleted = 1, deleted_at = ?
			WHERE is_deleted = 0 AND (
				user_id = ? OR post_id IN (SELECT id FROM posts WHERE user_id = ?)
			)`, deletedAt, userID, userID); err != nil {
			return apperr.Internal(fmt.Errorf("delete user comments: %w", err))
		}
		return nil
	})
}

// DeletePost deletes a post owned by the caller together with all of its comments.
func (d *SoftDeleter) DeletePost(ctx context.Context, postID string, id auth.Identity) error {
	if postID == "" {
		return apperr.Validation(apperr.CodeMissingInfo, "Missing information")
	}

	var category models.Category
	err := database.WithTx(ctx, d.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := auth.CheckOwnership(ctx, tx, postOwnerQuery, postID, id, errPostNotFound()); err != nil {
			return err
		}
		deletedAt := d.now().UTC()

		err := tx.QueryRowContext(ctx,
			"UPDATE posts SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0 RETURNING category",
			deletedAt, postID).Scan(&category)
		if err == sql.ErrNoRows {
			return errPostNotFound()
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("delete post: %w", err))
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE comments SET is_deleted = 1, deleted_at = ? WHERE post_id = ? AND is_deleted = 0",
			deletedAt, postID); err != nil {
			return apperr.Internal(fmt.Errorf("delete post comments: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.feed.Publish(ActionPostDeleted, category, map[string]string{"post_id": postID})
	return nil
}

// DeleteComment deletes a comment owned by the caller and decrements its post's counter once.
func (d *SoftDeleter) DeleteComment(ctx context.Context, commentID string, id auth.Identity) error {
	if commentID == "" {
		return apperr.Validation(apperr.CodeMissingInfo, "Missing information")
	}

	var postID string
	var category models.Category
	err := database.WithTx(ctx, d.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := auth.CheckOwnership(ctx, tx, commentOwnerQuery, commentID, id, errCommentNotFound()); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx,
			"UPDATE comments SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0 RETURNING post_id",
			d.now().UTC(), commentID).Scan(&postID)
		if err == sql.ErrNoRows {
			return errCommentNotFound()
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("delete comment: %w", err))
		}

		err = tx.QueryRowContext(ctx,
			"UPDATE posts SET comment_count = comment_count - 1 WHERE id = ? AND comment_count > 0 RETURNING category",
			postID).Scan(&category)
		if err != nil && err != sql.ErrNoRows {
			return apperr.Internal(fmt.Errorf("decrement comment count: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.feed.Publish(ActionCommentDeleted, category, map[string]string{"comment_id": commentID, "post_id": postID})
	return nil
}
