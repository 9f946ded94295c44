package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/httpserver/mw"
	"github.com/markitapp/markit/internal/session"
	"github.com/markitapp/markit/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeMutationError maps engine errors onto the API surface:
// validation -> 422, unknown record -> 404, store failure -> 502.
func writeMutationError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: verr.Reason,
			Field: verr.Field,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	default:
		writeError(w, http.StatusBadGateway, "record store unavailable")
	}
}

// engineFor resolves the authenticated caller's session engine.
func engineFor(d deps.Deps, r *http.Request) (*session.Engine, error) {
	user, ok := mw.UserFrom(r.Context())
	if !ok {
		return nil, errors.New("no authenticated user in context")
	}
	return d.Sessions.Session(r.Context(), user)
}
