package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookswap/service"
	"github.com/kevinaaaquil/bookswap/utils"
)

type UsersHandler struct {
	Accounts *service.Accounts
}

// Register creates an account and returns a session token for it.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusCreated, session, "user registered successfully")
}

func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.Accounts.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, session, "login successful")
}

// Me returns the caller's own account, without the password hash or lockout counters.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	utils.Success(w, http.StatusOK, user, "")
}

func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateProfileInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.Accounts.UpdateProfile(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, updated, "profile updated")
}

func (h *UsersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Accounts.DeleteSelf(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, nil, "account deleted")
}

// Public returns another user's public profile.
func (h *UsersHandler) Public(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Accounts.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Success(w, http.StatusOK, profile, "")
}
