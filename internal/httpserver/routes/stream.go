package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/httpserver/handlers"
	"github.com/markitapp/markit/internal/httpserver/mw"
)

func init() { Register(registerStream) }

func registerStream(r chi.Router, d deps.Deps) {
	r.With(mw.Auth(d.JWTSecret, d.Logger)).Get("/api/stream", handlers.Stream(d))
}
