package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/markitapp/markit/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool   `json:"ready"`
	Redis    string `json:"redis"`
	Sessions int    `json:"sessions"`
}

// Readyz reports whether the service can actually serve: without the
// record store there is nothing to seed sessions from.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Redis: "ok"}
		if d.Sessions != nil {
			resp.Sessions = d.Sessions.Count()
		}

		if d.RedisClient == nil {
			resp.Ready = false
			resp.Redis = "not configured"
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				resp.Ready = false
				resp.Redis = "unreachable"
			}
			cancel()
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
