package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/services"
)

// AccountHandler handles HTTP requests for accounts and sessions.
type AccountHandler struct {
	service     services.UserServiceProvider
	cookies     Cookies
	exposeToken bool
}

// NewAccountHandler creates a new AccountHandler. With exposeToken the login response also
// carries the token for clients that send it as a bearer header.
func NewAccountHandler(service services.UserServiceProvider, cookies Cookies, exposeToken bool) *AccountHandler {
	return &AccountHandler{service: service, cookies: cookies, exposeToken: exposeToken}
}

// Register handles new user registration.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	render.Success(w, map[string]any{
		"email":     user.Email,
		"username":  user.Username,
		"full_name": user.FullName,
	})
}

// Login checks credentials and sets the session cookie.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), in)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.cookies.set(w, token)
	fields := map[string]any{}
	if h.exposeToken {
		fields["token"] = token
	}
	render.Success(w, fields)
}

// Logout ends the caller's session.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.service.Logout(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}
	h.cookies.clear(w)
	render.Success(w, nil)
}

// Get returns the caller's profile.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	user, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, map[string]any{"user": user})
}

// Update sets the caller's location and/or address.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.service.UpdateProfile(r.Context(), id, in); err != nil {
		render.Error(w, r, err)
		return
	}
	render.Success(w, nil)
}

// ChangePassword stores a new password and ends the session.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in services.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, in); err != nil {
		render.Error(w, r, err)
		return
	}
	h.cookies.clear(w)
	render.Success(w, nil)
}

// Delete soft-deletes the caller's account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}
	log.Info().Str("user_id", id.UserID).Msg("Account deleted")
	h.cookies.clear(w)
	render.Success(w, nil)
}
