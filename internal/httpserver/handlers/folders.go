package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/logger"
)

type createFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateFolder handles POST /api/folders.
func CreateFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createFolderRequest
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

		created, err := engine.AddFolder(r.Context(), req.Name, req.Color)
		if err != nil {
			writeMutationError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

// DeleteFolder handles DELETE /api/folders/{id}. Bookmarks in the
// folder are left in place with a dangling reference.
func DeleteFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		if err := engine.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeMutationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
