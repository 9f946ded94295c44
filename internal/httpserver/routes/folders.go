package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/httpserver/handlers"
	"github.com/markitapp/markit/internal/httpserver/mw"
)

func init() { Register(registerFolders) }

func registerFolders(r chi.Router, d deps.Deps) {
	sub := r.With(mw.Auth(d.JWTSecret, d.Logger))
	sub.Post("/api/folders", handlers.CreateFolder(d))
	sub.Delete("/api/folders/{id}", handlers.DeleteFolder(d))
}
