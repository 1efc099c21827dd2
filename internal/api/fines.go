package api

import (
	"net/http"
	"strings"

	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
)

type createFineRequest struct {
	Amount float64 `json:"amount"`
	Reason *string `json:"reason"`
	Paid   *bool   `json:"paid"`
	UserID string  `json:"userId"`
}

func handleListFines(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	paid, err := boolParam(r, "paid")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}

	fines, err := deps.Store.QueryFines(r.Context(), library.FineFilter{
		UserID: stringParam(r, "userId"),
		Paid:   paid,
		Limit:  limit,
	})
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	if fines == nil {
		fines = []library.Fine{}
	}
	writeJSON(w, http.StatusOK, fines)
}

func handleCreateFine(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req createFineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "userId is required", false, nil)
		return
	}

	fine, err := deps.Store.CreateFine(r.Context(), library.CreateFineInput{
		Amount: req.Amount,
		Reason: req.Reason,
		Paid:   req.Paid,
		UserID: strings.TrimSpace(req.UserID),
	})
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fine)
}

func handlePayFine(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "fine id is required", false, nil)
		return
	}

	fine, err := deps.Store.MarkFinePaid(r.Context(), id)
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, fine)
}
