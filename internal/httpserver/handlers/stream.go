package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/logger"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// originAllowed matches a browser Origin header against the configured
// allowlist. No Origin header means a non-browser client, which the
// bearer token already gates.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// Stream handles GET /api/stream: a websocket that pushes a fresh
// view snapshot whenever the session's collections change. Signals
// are coalesced, so a burst of feed events yields one push.
func Stream(d deps.Deps) http.HandlerFunc {
	// CORS does not gate websocket upgrades, so the configured origins
	// are enforced here as well.
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(d.StreamOrigins, r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(d, r)
		if err != nil {
			d.Logger.Error("failed to open session", logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to open session")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil {
				d.Logger.Debug("failed to close websocket", logger.Error(cerr))
			}
		}()

		changes, cancel := engine.Watch()
		defer cancel()

		// Reader exists only to surface the peer closing the socket.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		push := func() bool {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			view := engine.View("")
			if err := conn.WriteJSON(viewResponse{
				View:     view,
				Nav:      view.Filter.Nav,
				FolderID: view.Filter.FolderID,
			}); err != nil {
				d.Logger.Debug("websocket push failed",
					logger.String("owner_id", engine.Owner().ID),
					logger.Error(err))
				return false
			}
			return true
		}

		// Initial snapshot so the client never renders empty.
		if !push() {
			return
		}

		ping := time.NewTicker(streamPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-done:
				return
			case _, ok := <-changes:
				if !ok {
					// Engine closed (shutdown or reaped).
					_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
					return
				}
				if !push() {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
