package api

import (
	"net/http"
	"strings"

	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
)

type createUserRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func handleListUsers(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	filter := library.UserFilter{
		Email: stringParam(r, "email"),
		Limit: limit,
	}
	if name := stringParam(r, "name"); name != nil {
		filter.Name = library.Contains(*name)
	}

	users, err := deps.Store.QueryUsers(r.Context(), filter)
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	if users == nil {
		users = []library.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func handleCreateUser(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "email is required", false, nil)
		return
	}

	user, err := deps.Store.CreateUser(r.Context(), library.CreateUserInput{
		Email: strings.TrimSpace(req.Email),
		Name:  req.Name,
	})
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleEnsureUser registers the user on first sight and is otherwise a
// lookup, so identity providers can call it on every sign-in.
func handleEnsureUser(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "email is required", false, nil)
		return
	}

	user, created, err := deps.Store.EnsureUser(r.Context(), library.CreateUserInput{
		Email: strings.TrimSpace(req.Email),
		Name:  req.Name,
	})
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, user)
}

func handleRecentUsers(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 5)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	users, err := deps.Store.ListRecentUsers(r.Context(), limit)
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	if users == nil {
		users = []library.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
