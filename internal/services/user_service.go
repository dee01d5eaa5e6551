package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/models"
)

// bcrypt ignores nothing past this many bytes; longer passwords are rejected instead.
const maxPasswordBytes = 72

// TokenIssuer issues and revokes session tokens on a caller-supplied executor.
type TokenIssuer interface {
	Issue(ctx context.Context, q database.DBTX, userID string) (string, error)
	Revoke(ctx context.Context, q database.DBTX, userID string) error
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Login(ctx context.Context, in LoginInput) (string, error)
	Logout(ctx context.Context, id auth.Identity) error
	GetProfile(ctx context.Context, id auth.Identity) (models.User, error)
	UpdateProfile(ctx context.Context, id auth.Identity, in UpdateProfileInput) error
	ChangePassword(ctx context.Context, id auth.Identity, in ChangePasswordInput) error
	DeleteAccount(ctx context.Context, id auth.Identity) error
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

// LoginInput is the login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries optional profile fields. Empty fields keep their current value.
type UpdateProfileInput struct {
	Location string `json:"location" validate:"max=200"`
	Address  string `json:"address" validate:"max=500"`
}

// ChangePasswordInput is the password change request.
type ChangePasswordInput struct {
	Password string `json:"password" validate:"required,password"`
}

// UserService provides business logic for user management.
type UserService struct {
	db      *sql.DB
	tokens  TokenIssuer
	deleter SoftDeleterProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, tokens TokenIssuer, deleter SoftDeleterProvider) *UserService {
	return &UserService{db: db, tokens: tokens, deleter: deleter}
}

// Register creates an account with a derived, unique username.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := check(in, func(fe validator.FieldError) *apperr.Error {
		if fe.Tag() == "password" {
			return apperr.Validation(apperr.CodePasswordLength,
				fmt.Sprintf("Password length must be at least %d characters length", models.MinPasswordLength))
		}
		return apperr.Validation(apperr.CodeBadRequest, "Inappropriate request")
	}); err != nil {
		return models.User{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return models.User{}, apperr.Validation(apperr.CodePasswordLength, "Password must be at most 72 bytes long")
	}
	base := BaseUsername(in.FullName)
	if base == "" {
		return models.User{}, apperr.Validation(apperr.CodeBadRequest, "Inappropriate request")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	user := models.User{
		ID:        uuid.New().String(),
		Email:     in.Email,
		FullName:  in.FullName,
		CreatedAt: time.Now().UTC(),
	}

	err = database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", user.Email).Scan(&exists); err != nil {
			return apperr.Internal(fmt.Errorf("check email: %w", err))
		}
		if exists {
			return errEmailExists()
		}

		username, err := nextUsername(ctx, tx, base)
		if err != nil {
			return err
		}
		user.Username = username

		_, err = tx.ExecContext(ctx,
			"INSERT INTO users (id, email, password, full_name, username, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			user.ID, user.Email, hashed, user.FullName, user.Username, user.CreatedAt)
		if database.IsUniqueViolation(err) && strings.Contains(err.Error(), "users.email") {
			return errEmailExists()
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("insert user: %w", err))
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login checks credentials and issues a new token, invalidating any previous session.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(in, func(validator.FieldError) *apperr.Error {
		return apperr.Validation(apperr.CodeBadRequest, "Inappropriate request")
	}); err != nil {
		return "", err
	}

	var userID, digest string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password FROM users WHERE email = ? AND is_deleted = 0", in.Email,
	).Scan(&userID, &digest)
	if err == sql.ErrNoRows {
		return "", apperr.InvalidLogin()
	}
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("find user: %w", err))
	}
	if !auth.CheckPassword(in.Password, digest) {
		return "", apperr.InvalidLogin()
	}

	var token string
	err = database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		token, err = s.tokens.Issue(ctx, tx, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Logout revokes the caller's session. A superseded token cannot end the newer one.
func (s *UserService) Logout(ctx context.Context, id auth.Identity) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET token = NULL WHERE id = ? AND token = ? AND is_deleted = 0",
		id.UserID, id.Token)
	if err != nil {
		return apperr.Internal(fmt.Errorf("logout: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return apperr.Unauthorized()
	}
	return nil
}

// GetProfile returns the caller's account.
func (s *UserService) GetProfile(ctx context.Context, id auth.Identity) (models.User, error) {
	var user models.User
	var location, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, username, location, address, created_at
		FROM users WHERE id = ? AND is_deleted = 0`, id.UserID,
	).Scan(&user.ID, &user.Email, &user.FullName, &user.Username, &location, &address, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, errAccountNotFound()
	}
	if err != nil {
		return models.User{}, apperr.Internal(fmt.Errorf("get profile: %w", err))
	}
	if location.Valid {
		user.Location = &location.String
	}
	if address.Valid {
		user.Address = &address.String
	}
	return user, nil
}

// UpdateProfile sets the given profile fields. At least one must be non-empty.
func (s *UserService) UpdateProfile(ctx context.Context, id auth.Identity, in UpdateProfileInput) error {
	in.Location = strings.TrimSpace(in.Location)
	in.Address = strings.TrimSpace(in.Address)
	if in.Location == "" && in.Address == "" {
		return apperr.Validation(apperr.CodeMissingInfo, "At least one of the information is required")
	}
	if err := check(in, func(validator.FieldError) *apperr.Error {
		return apperr.Validation(apperr.CodeBadRequest, "Inappropriate request")
	}); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET location = COALESCE(?, location), address = COALESCE(?, address)
		WHERE id = ? AND token = ? AND is_deleted = 0`,
		nullIfEmpty(in.Location), nullIfEmpty(in.Address), id.UserID, id.Token)
	if err != nil {
		return apperr.Internal(fmt.Errorf("update profile: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return apperr.Unauthorized()
	}
	return nil
}

// ChangePassword stores a new password and ends the current session.
func (s *UserService) ChangePassword(ctx context.Context, id auth.Identity, in ChangePasswordInput) error {
	if err := check(in, missingInfo); err != nil {
		return err
	}
	if len(in.Password) > maxPasswordBytes {
		return apperr.Validation(apperr.CodePasswordLength, "Password must be at most 72 bytes long")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return apperr.Internal(err)
	}

	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET password = ? WHERE id = ? AND token = ? AND is_deleted = 0",
			hashed, id.UserID, id.Token)
		if err != nil {
			return apperr.Internal(fmt.Errorf("update password: %w", err))
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return apperr.Unauthorized()
		}
		return s.tokens.Revoke(ctx, tx, id.UserID)
	})
}

// DeleteAccount soft-deletes the caller's account and everything hanging off it.
func (s *UserService) DeleteAccount(ctx context.Context, id auth.Identity) error {
	return s.deleter.DeleteUser(ctx, id)
}

// BaseUsername lowercases fullName, transliterates it to ASCII and joins the words with dots.
func BaseUsername(fullName string) string {
	ascii := unidecode.Unidecode(norm.NFC.String(strings.ToLower(fullName)))
	return strings.Join(strings.Fields(ascii), ".")
}

// nextUsername appends the number of usernames sharing the base prefix, moving up until the
// candidate is free.
func nextUsername(ctx context.Context, q database.DBTX, base string) (string, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username LIKE ? ESCAPE '\'`,
		database.EscapeLike(base)+"%").Scan(&n)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("count usernames: %w", err))
	}

	for {
		candidate := base + strconv.Itoa(n)
		var taken bool
		err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", candidate).Scan(&taken)
		if err != nil {
			return "", apperr.Internal(fmt.Errorf("check username: %w", err))
		}
		if !taken {
			return candidate, nil
		}
		n++
	}
}

func errEmailExists() *apperr.Error {
	return apperr.Conflict(apperr.CodeEmailExists, "This email is already exist")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
