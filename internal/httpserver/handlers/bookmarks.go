package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/logger"
)

type createBookmarkRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	FolderID string `json:"folder_id"`
}

type toggleFavoriteRequest struct {
	Favorite bool `json:"favorite"` // current value as the client sees it
}

type moveBookmarkRequest struct {
	FolderID string `json:"folder_id"` // empty string unfiles the bookmark
}

// CreateBookmark handles POST /api/bookmarks.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookmarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		created, err := engine.AddBookmark(r.Context(), req.Title, req.URL, req.FolderID)
		if err != nil {
			writeMutationError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

// DeleteBookmark handles DELETE /api/bookmarks/{id}.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		if err := engine.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeMutationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleFavorite handles POST /api/bookmarks/{id}/favorite. The
// response carries the effective bookmark, which may reflect the local
// overlay rather than the server flag when the store write failed.
func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleFavoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		effective, err := engine.ToggleFavorite(r.Context(), chi.URLParam(r, "id"), req.Favorite)
		if err != nil {
			writeMutationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, effective)
	}
}

// MoveBookmark handles PATCH /api/bookmarks/{id}/folder.
func MoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveBookmarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		if err := engine.MoveBookmark(r.Context(), chi.URLParam(r, "id"), req.FolderID); err != nil {
			writeMutationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
