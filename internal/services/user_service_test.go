package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/models"
)

func TestBaseUsername(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane Doe", "jane.doe"},
		{"  Jane   Doe  ", "jane.doe"},
		{"José Núñez", "jose.nunez"},
		{"Ørjan", "orjan"},
		{"Ørsted Straße", "orsted.strasse"},
		{"Łukasz Żółw", "lukasz.zolw"},
		{"Дмитрий Иванов", "dmitrii.ivanov"},
		{"Jose\u0301", "jose"},
		{"Mary Ann O'Neil", "mary.ann.o'neil"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseUsername(tt.in), tt.in)
	}
}

func TestRegisterUsernameSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	register := func(email, name string) string {
		u, err := f.users.Register(ctx, RegisterInput{Email: email, Password: testPassword, FullName: name})
		require.NoError(t, err)
		return u.Username
	}

	assert.Equal(t, "jane.doe0", register("a@x.com", "Jane Doe"))
	assert.Equal(t, "jane.doe1", register("b@x.com", "jane  DOE"))
	assert.Equal(t, "jane.doel0", register("c@x.com", "Jane Doel"))
	// Three usernames now start with "jane.doe".
	assert.Equal(t, "jane.doe3", register("d@x.com", "Jane Doe"))
	// "%" in a name is matched literally.
	assert.Equal(t, "1000.real0", register("e@x.com", "1000 Real"))
	assert.Equal(t, "100%.real0", register("f@x.com", "100% Real"))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Email: "a@x.com", Password: "short", FullName: "A"})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodePasswordLength)

	// Length counts characters, not bytes.
	_, err = f.users.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: strings.Repeat("é", models.MinPasswordLength-1), FullName: "A",
	})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodePasswordLength)

	_, err = f.users.Register(ctx, RegisterInput{Email: "a@x.com", Password: strings.Repeat("p", 73), FullName: "A"})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodePasswordLength)

	_, err = f.users.Register(ctx, RegisterInput{Email: "not-an-email", Password: testPassword, FullName: "A"})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodeBadRequest)

	_, err = f.users.Register(ctx, RegisterInput{Email: "a@x.com", Password: testPassword, FullName: "   "})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodeBadRequest)

	_, err = f.users.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: strings.Repeat("p", models.MinPasswordLength), FullName: "A",
	})
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Email: "jane@x.com", Password: testPassword, FullName: "Jane"})
	require.NoError(t, err)

	_, err = f.users.Register(ctx, RegisterInput{Email: " JANE@x.com ", Password: testPassword, FullName: "Other"})
	requireAppErr(t, err, apperr.KindConflict, apperr.CodeEmailExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Register(ctx, RegisterInput{Email: "jane@x.com", Password: testPassword, FullName: "Jane"})
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		token, err := f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: "password2"})
		requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeInvalidLogin)
		assert.Empty(t, token)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.users.Login(ctx, LoginInput{Email: "nobody@x.com", Password: testPassword})
		requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeInvalidLogin)
	})

	t.Run("single active session", func(t *testing.T) {
		first, err := f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: testPassword})
		require.NoError(t, err)
		second, err := f.users.Login(ctx, LoginInput{Email: "Jane@X.com", Password: testPassword})
		require.NoError(t, err)

		_, err = f.tokens.Verify(ctx, first)
		assert.ErrorIs(t, err, auth.ErrRevoked)
		_, err = f.tokens.Verify(ctx, second)
		assert.NoError(t, err)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signUp(t, "jane@x.com", "Jane")

	require.NoError(t, f.users.Logout(ctx, id))
	_, err := f.tokens.Verify(ctx, id.Token)
	assert.ErrorIs(t, err, auth.ErrRevoked)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signUp(t, "jane@x.com", "Jane Doe")

	err := f.users.UpdateProfile(ctx, id, UpdateProfileInput{Location: " ", Address: ""})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodeMissingInfo)

	require.NoError(t, f.users.UpdateProfile(ctx, id, UpdateProfileInput{Location: "Lisbon"}))
	require.NoError(t, f.users.UpdateProfile(ctx, id, UpdateProfileInput{Address: "Rua 1"}))

	user, err := f.users.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, user.Location)
	require.NotNil(t, user.Address)
	assert.Equal(t, "Lisbon", *user.Location)
	assert.Equal(t, "Rua 1", *user.Address)
	assert.Equal(t, "jane.doe0", user.Username)

	stale := auth.Identity{UserID: id.UserID, Token: "old"}
	err = f.users.UpdateProfile(ctx, stale, UpdateProfileInput{Location: "Porto"})
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeNotAuthorized)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signUp(t, "jane@x.com", "Jane")

	err := f.users.ChangePassword(ctx, id, ChangePasswordInput{Password: "short"})
	requireAppErr(t, err, apperr.KindValidation, apperr.CodeMissingInfo)

	require.NoError(t, f.users.ChangePassword(ctx, id, ChangePasswordInput{Password: "brand-new-pass"}))

	_, err = f.tokens.Verify(ctx, id.Token)
	assert.ErrorIs(t, err, auth.ErrRevoked)

	// The session is gone, so the same identity cannot change it again.
	err = f.users.ChangePassword(ctx, id, ChangePasswordInput{Password: "another-pass"})
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeNotAuthorized)

	_, err = f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: testPassword})
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeInvalidLogin)
	_, err = f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestGetProfileAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signUp(t, "jane@x.com", "Jane")

	require.NoError(t, f.users.DeleteAccount(ctx, id))

	_, err := f.users.GetProfile(ctx, id)
	requireAppErr(t, err, apperr.KindNotFound, apperr.CodeNotFound)
	_, err = f.users.Login(ctx, LoginInput{Email: "jane@x.com", Password: testPassword})
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.CodeInvalidLogin)
}
