package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database"
)

func TestDeletePostCascades(t *testing.T) {
	f := newFixture(t)
	jane := f.signUp(t, "jane@x.com", "Jane")
	john := f.signUp(t, "john@x.com", "John")
	postID := f.newPost(t, jane, "post", "AI")
	f.newComment(t, john, postID)
	f.newComment(t, jane, postID)
	ctx := context.Background()

	err := f.posts.Delete(ctx, john, postID)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeNotAuthorized)

	require.NoError(t, f.posts.Delete(ctx, jane, postID))

	_, err = f.posts.Get(ctx, postID)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeInvalidPost)
	_, err = f.comments.ListForPost(ctx, postID)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeInvalidPost)
	assert.Zero(t, f.liveComments(t, postID))

	all, err := f.posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	err = f.posts.Delete(ctx, jane, postID)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeInvalidPost)

	last := f.feed.events[len(f.feed.events)-1]
	assert.Equal(t, ActionPostDeleted, last.Action)
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	deletedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.deleter.now = func() time.Time { return deletedAt }
	ctx := context.Background()

	jane := f.signUp(t, "jane@x.com", "Jane")
	john := f.signUp(t, "john@x.com", "John")
	janePost := f.newPost(t, jane, "jane's", "AI")
	johnPost := f.newPost(t, john, "john's", "Money")

	f.newComment(t, john, janePost)
	f.newComment(t, john, janePost)
	f.newComment(t, jane, janePost)
	f.newComment(t, jane, johnPost)
	f.newComment(t, jane, johnPost)
	johnOnOwn := f.newComment(t, john, johnPost)
	require.Equal(t, 3, f.commentCount(t, johnPost))

	require.NoError(t, f.users.DeleteAccount(ctx, jane))

	// Jane's post and every comment on it are gone, whoever wrote them.
	_, err := f.posts.Get(ctx, janePost)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeInvalidPost)
	assert.Zero(t, f.liveComments(t, janePost))

	// Jane's comments on John's post are gone and its counter follows.
	list, err := f.comments.ListForPost(ctx, johnPost)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, johnOnOwn, list[0].ID)
	assert.Equal(t, 1, f.commentCount(t, johnPost))

	var stamps, rows int
	require.NoError(t, f.db.QueryRow(`
		SELECT COUNT(DISTINCT deleted_at), COUNT(*) FROM (
			SELECT deleted_at FROM users WHERE is_deleted = 1
			UNION ALL SELECT deleted_at FROM posts WHERE is_deleted = 1
			UNION ALL SELECT deleted_at FROM comments WHERE is_deleted = 1
		)`).Scan(&stamps, &rows))
	assert.Equal(t, 1, stamps)
	assert.Equal(t, 1+1+5, rows)

	_, err = f.tokens.Verify(ctx, jane.Token)
	assert.ErrorIs(t, err, auth.ErrRevoked)

	err = f.users.DeleteAccount(ctx, jane)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeNotFound)

	// John is untouched.
	p, err := f.posts.Get(ctx, johnPost)
	require.NoError(t, err)
	assert.Equal(t, "john's", p.Title)
}

func TestDeleteUserRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	jane := f.signUp(t, "jane@x.com", "Jane")
	postID := f.newPost(t, jane, "post", "AI")
	ctx := context.Background()

	f.deleter.tokens = failingIssuer{}
	err := f.deleter.DeleteUser(ctx, jane)
	requireAppErr(t, err, apperr.KindInternal, apperr.CodeGeneric)

	_, err = f.posts.Get(ctx, postID)
	assert.NoError(t, err)
	_, err = f.users.GetProfile(ctx, jane)
	assert.NoError(t, err)
}

func TestSupersededSessionCannotEndAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.signUp(t, "jane@x.com", "Jane")
	postID := f.newPost(t, old, "post", "AI")

	token, err := f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: testPassword})
	require.NoError(t, err)
	current := auth.Identity{UserID: old.UserID, Token: token}

	err = f.users.DeleteAccount(ctx, old)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeNotAuthorized)
	err = f.users.Logout(ctx, old)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeNotAuthorized)

	// The newer session and everything it owns survive.
	_, err = f.tokens.Verify(ctx, current.Token)
	require.NoError(t, err)
	_, err = f.posts.Get(ctx, postID)
	require.NoError(t, err)
	_, err = f.users.GetProfile(ctx, current)
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteAccount(ctx, current))
	_, err = f.posts.Get(ctx, postID)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeInvalidPost)
}

type failingIssuer struct{}

func (failingIssuer) Issue(context.Context, database.DBTX, string) (string, error) {
	return "", apperr.Internal(errors.New("boom"))
}

func (failingIssuer) Revoke(context.Context, database.DBTX, string) error {
	return apperr.Internal(errors.New("boom"))
}
