package handlers

import (
	"net/http"
	"strings"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/session"
)

type viewResponse struct {
	session.View
	Nav      domain.Nav `json:"nav"`
	FolderID string     `json:"folder_id,omitempty"`
}

// View returns the caller's projected dashboard state. Passing nav
// (and folder for nav=folder) switches the session's sticky filter;
// q applies a one-shot search on top of it.
func View(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		if nav := r.URL.Query().Get("nav"); nav != "" {
			filter, ok := parseFilter(nav, r.URL.Query().Get("folder"))
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid nav value")
				return
			}
			engine.SetFilter(filter)
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		view := engine.View(query)

		writeJSON(w, http.StatusOK, viewResponse{
			View:     view,
			Nav:      view.Filter.Nav,
			FolderID: view.Filter.FolderID,
		})
	}
}

func parseFilter(nav, folderID string) (domain.Filter, bool) {
	switch domain.Nav(nav) {
	case domain.NavAll:
		return domain.Filter{Nav: domain.NavAll}, true
	case domain.NavFavorites:
		return domain.Filter{Nav: domain.NavFavorites}, true
	case domain.NavFolder:
		if folderID == "" {
			return domain.Filter{}, false
		}
		return domain.Filter{Nav: domain.NavFolder, FolderID: folderID}, true
	}
	return domain.Filter{}, false
}
