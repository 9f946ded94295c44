package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/httpserver/handlers"
	"github.com/markitapp/markit/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	sub := r.With(
		mw.Auth(d.JWTSecret, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             30,
			RefillPerIPPerMin: 120,
			MaxEntries:        4096,
			SweepInterval:     time.Minute,
			IdleTTL:           15 * time.Minute,
			TrustProxy:        d.TrustProxy,
		}),
	)

	sub.Post("/api/bookmarks", handlers.CreateBookmark(d))
	sub.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
	sub.Post("/api/bookmarks/{id}/favorite", handlers.ToggleFavorite(d))
	sub.Patch("/api/bookmarks/{id}/folder", handlers.MoveBookmark(d))
}
