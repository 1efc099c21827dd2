package api

import (
	"net/http"
	"strings"

	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
)

type createBookRequest struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         *string `json:"genre"`
	PublishedYear *int    `json:"publishedYear"`
	Available     *bool   `json:"available"`
}

func handleListBooks(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	available, err := boolParam(r, "available")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}

	filter := library.BookFilter{
		Available: available,
		Limit:     limit,
	}
	if title := stringParam(r, "title"); title != nil {
		filter.Title = library.Contains(*title)
	}
	if author := stringParam(r, "author"); author != nil {
		filter.Author = library.Contains(*author)
	}
	if genre := stringParam(r, "genre"); genre != nil {
		filter.Genre = library.Equals(*genre)
	}
	if search := stringParam(r, "search"); search != nil {
		filter.Search = *search
	}
	switch strings.TrimSpace(r.URL.Query().Get("sort")) {
	case "":
	case "recent":
		filter.Sort = library.BookSortRecent
	case "title":
		filter.Sort = library.BookSortTitleAsc
	case "title_desc":
		filter.Sort = library.BookSortTitleDesc
	case "author":
		filter.Sort = library.BookSortAuthorAsc
	case "author_desc":
		filter.Sort = library.BookSortAuthorDesc
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid sort", false, nil)
		return
	}

	books, err := deps.Store.QueryBooks(r.Context(), filter)
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	if books == nil {
		books = []library.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func handleCreateBook(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if cfg.Auth.Required && !requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req createBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false, nil)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_ERROR", "title and author are required", false, nil)
		return
	}

	book, err := deps.Store.CreateBook(r.Context(), library.CreateBookInput{
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		Available:     req.Available,
	})
	if err != nil {
		mapStoreError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}
