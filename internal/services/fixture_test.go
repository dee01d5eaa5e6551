package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database/dbtest"
	"github.com/isdelr/blogpost-be/internal/models"
)

const testPassword = "password1"

type feedEvent struct {
	Action   string
	Category models.Category
	Payload  any
}

type recordingFeed struct {
	mu     sync.Mutex
	events []feedEvent
}

func (r *recordingFeed) Publish(action string, category models.Category, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, feedEvent{Action: action, Category: category, Payload: payload})
}

func (r *recordingFeed) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	db       *sql.DB
	tokens   *auth.TokenService
	deleter  *SoftDeleter
	users    *UserService
	posts    *PostService
	comments *CommentService
	feed     *recordingFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	feed := &recordingFeed{}
	tokens := auth.NewTokenService(db, "test-secret", time.Hour)
	deleter := NewSoftDeleter(db, tokens, feed)
	return &fixture{
		db:       db,
		tokens:   tokens,
		deleter:  deleter,
		users:    NewUserService(db, tokens, deleter),
		posts:    NewPostService(db, deleter, feed),
		comments: NewCommentService(db, deleter, feed),
		feed:     feed,
	}
}

// signUp registers and logs in a user.
func (f *fixture) signUp(t *testing.T, email, fullName string) auth.Identity {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.Register(ctx, RegisterInput{Email: email, Password: testPassword, FullName: fullName})
	require.NoError(t, err)
	token, err := f.users.Login(ctx, LoginInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return auth.Identity{UserID: user.ID, Token: token}
}

func (f *fixture) newPost(t *testing.T, id auth.Identity, title, category string) string {
	t.Helper()
	postID, err := f.posts.Create(context.Background(), id, CreatePostInput{
		Title: title, Body: body(models.MinBodyLength), Category: category,
	})
	require.NoError(t, err)
	return postID
}

func (f *fixture) newComment(t *testing.T, id auth.Identity, postID string) string {
	t.Helper()
	commentID, err := f.comments.Create(context.Background(), id, CreateCommentInput{PostID: postID, Text: "nice"})
	require.NoError(t, err)
	return commentID
}

func (f *fixture) commentCount(t *testing.T, postID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT comment_count FROM posts WHERE id = ?", postID).Scan(&n))
	return n
}

func (f *fixture) liveComments(t *testing.T, postID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(
		"SELECT COUNT(*) FROM comments WHERE post_id = ? AND is_deleted = 0", postID).Scan(&n))
	return n
}

func body(n int) string {
	return strings.Repeat("a", n)
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, code int) {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.Equal(t, kind, ae.Kind, "kind of %v", err)
	require.Equal(t, code, ae.Code, "code of %v", err)
}
