package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/handlers/middleware"
	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/handlers/userctx"
)

type authHandler struct {
	auth    authService
	cookies cookieBinder
	onError middleware.ErrorHandler
}

// Handler that returns errors it can't handle itself
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *authHandler) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.onError(w, r, err)
		}
	}
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) error {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return nil // Error response already written
	}

	identity, err := h.auth.Register(r.Context(), data.Email, data.Password)
	if err != nil {
		return err
	}

	render.Results(w, identity, http.StatusCreated)
	return nil
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return nil // Error response already written
	}

	identity, pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "User not found", http.StatusNotFound)
		return nil
	case errors.Is(err, apperrors.ErrInvalidPassword):
		render.ServiceError(w, "Invalid password", http.StatusUnauthorized)
		return nil
	case err != nil:
		return err
	}

	h.cookies.SetAuthCookies(w, pair)
	render.Result(w, identity, http.StatusAccepted)
	return nil
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) error {
	identity, _ := userctx.FromContext(r.Context())

	err := h.auth.Logout(r.Context(), identity.ID)
	if err != nil {
		return err
	}

	h.cookies.ClearAuthCookies(w)
	render.Result(w, identity, http.StatusOK)
	return nil
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := userctx.FromContext(r.Context())
		render.Result(w, identity, http.StatusOK)
	}
}

func handleHealth(storage pinger) http.HandlerFunc {
	type response struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := storage.Ping(r.Context()); err != nil {
			render.ServiceError(w, "Storage unavailable", http.StatusServiceUnavailable)
			return
		}
		render.Result(w, response{Status: "ok"}, http.StatusOK)
	}
}
