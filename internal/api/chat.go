package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
)

type chatRequest struct {
	Instruction string `json:"instruction"`
}

func handleChat(cfg config.Config, deps Dependencies, executor ChatExecutor, w http.ResponseWriter, r *http.Request) {
	if !cfg.Chat.Enabled || executor == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "CHAT_DISABLED", "chat is not enabled on this deployment", false, nil)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "instruction is required", false, nil)
		return
	}

	callerID := resolveCaller(r.Context(), deps.Store)
	result := executor.Execute(r.Context(), instruction, callerID)
	writeJSON(w, http.StatusOK, result)
}

func handleAdminChat(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	handleChat(cfg, deps, deps.AdminChat, w, r)
}

// resolveCaller maps the authenticated identity onto a library user. A
// missing identity or an unknown email leaves the caller unresolved; the
// pipeline then runs without user-specific scoping.
func resolveCaller(ctx context.Context, store library.Store) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity.Email == "" || store == nil {
		return ""
	}
	user, err := store.GetUserByEmail(ctx, identity.Email)
	if err != nil {
		return ""
	}
	return user.ID
}

func requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || !identity.HasRole(role) {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "insufficient role for this operation", false, nil)
		return false
	}
	return true
}

func mapStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "NOT_FOUND", "record not found", false, nil)
	case errors.Is(err, library.ErrInvalidAmount):
		writeError(ctx, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), true, nil)
	}
}
