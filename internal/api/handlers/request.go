package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/auth"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a strict JSON body into v. Unknown fields, trailing data and malformed JSON
// are rejected. An empty body leaves v as it is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest()
	}
	if dec.More() {
		return badRequest()
	}
	return nil
}

func badRequest() *apperr.Error {
	return apperr.Validation(apperr.CodeBadRequest, "Inappropriate request")
}

// identity returns the caller attached by the guard.
func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return auth.Identity{}, apperr.LoginRequired()
	}
	return id, nil
}

// Cookies sets and clears the session cookie.
type Cookies struct {
	TTL    time.Duration
	Secure bool
}

func (c Cookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  time.Now().Add(c.TTL),
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

func (c Cookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}
