package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/abrezinsky/zoolo/internal/auth"
	"github.com/abrezinsky/zoolo/internal/services"
)

// handleLogin checks agency credentials and opens a session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		h.respondError(w, r, BadRequest("username and password are required"))
		return
	}

	actor, err := h.Agencies.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidCredentials) {
			h.respondError(w, r, Unauthorized(err.Error()))
			return
		}
		h.respondError(w, r, err)
		return
	}

	token := h.Auth.Start(*actor)
	auth.SetSessionCookie(w, token)
	h.Log.Info("Agency logged in", "username", actor.Username, "admin", actor.Admin)
	respondOK(w, LoginResponse{Token: token, Actor: *actor})
}

// handleLogout invalidates the session and clears the cookie
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		h.Auth.Logout(token)
	}
	auth.ClearSessionCookie(w)
	respondSuccess(w, "logged out")
}

// handleMe returns the caller of the current session
func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	respondOK(w, actor(r))
}
