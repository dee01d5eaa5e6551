package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/apperr"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// Verifier checks a session token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Guard rejects requests without a valid, current session token.
type Guard struct {
	tokens      Verifier
	allowBearer bool
}

// NewGuard creates a Guard. With allowBearer the Authorization header is accepted as well as
// the cookie.
func NewGuard(tokens Verifier, allowBearer bool) *Guard {
	return &Guard{tokens: tokens, allowBearer: allowBearer}
}

// Middleware gates next behind token verification.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := g.extract(r)
		if tokenStr == "" {
			render.Error(w, r, apperr.LoginRequired())
			return
		}

		claims, err := g.tokens.Verify(r.Context(), tokenStr)
		switch {
		case errors.Is(err, ErrExpired):
			render.Error(w, r, apperr.SessionExpired())
			return
		case errors.Is(err, ErrUnverified):
			log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Token store check failed")
			render.Error(w, r, apperr.Forbidden(nil))
			return
		case err != nil:
			render.Error(w, r, apperr.Forbidden(nil))
			return
		}

		ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Token: tokenStr})
		log.Debug().Str("user_id", claims.UserID).Msg("Authenticated request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) extract(r *http.Request) string {
	if g.allowBearer {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			return token
		}
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
