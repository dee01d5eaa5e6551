package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/database"
)

// Verification failures.
var (
	ErrExpired    = errors.New("token expired")
	ErrInvalid    = errors.New("token invalid")
	ErrRevoked    = errors.New("token revoked")
	ErrUnverified = errors.New("token could not be checked")
)

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService issues session tokens and checks them against the user's current token.
type TokenService struct {
	db  *sql.DB
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(db *sql.DB, secret string, ttl time.Duration) *TokenService {
	return &TokenService{db: db, key: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for userID and stores it as the user's only valid token.
// q lets callers issue inside their own transaction.
func (s *TokenService) Issue(ctx context.Context, q database.DBTX, userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign token: %w", err))
	}

	res, err := q.ExecContext(ctx, "UPDATE users SET token = ? WHERE id = ? AND is_deleted = 0", token, userID)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("store token: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return "", apperr.NotFound(apperr.CodeNotFound, "Account not found")
	}
	return token, nil
}

// Verify checks signature and expiry, then that tokenStr is still the user's current token.
func (s *TokenService) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE id = ? AND token = ? AND is_deleted = 0",
		claims.UserID, tokenStr,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrRevoked
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	return claims, nil
}

// Revoke clears the stored token so every outstanding token of the user stops verifying.
func (s *TokenService) Revoke(ctx context.Context, q database.DBTX, userID string) error {
	if _, err := q.ExecContext(ctx, "UPDATE users SET token = NULL WHERE id = ?", userID); err != nil {
		return apperr.Internal(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

func (s *TokenService) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
