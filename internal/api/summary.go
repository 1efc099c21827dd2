package api

import (
	"net/http"

	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
)

func handleSummary(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	summary, err := deps.Store.Summary(r.Context())
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func handleRecentFines(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 5)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	fines, err := deps.Store.ListRecentFines(r.Context(), limit)
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	if fines == nil {
		fines = []library.FineWithUser{}
	}
	writeJSON(w, http.StatusOK, fines)
}

func handleAuditArchive(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	if deps.Archiver == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "audit archival is not enabled on this deployment", false, nil)
		return
	}
	count, err := deps.Archiver.ArchiveOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archived": count})
}
