package handlers

import (
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/api/render"
	"github.com/isdelr/blogpost-be/internal/apperr"
	ws "github.com/isdelr/blogpost-be/internal/websocket"
)

// FeedHandler upgrades authenticated requests to feed subscriptions.
type FeedHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewFeedHandler creates a new FeedHandler. Browser upgrades are only accepted from
// allowedOrigins; requests without an Origin header are always accepted.
func NewFeedHandler(hub *ws.Hub, allowedOrigins []string) *FeedHandler {
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve handles the WebSocket connection request.
func (h *FeedHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	topic, ok := ws.Topic(r.URL.Query().Get("category"))
	if !ok {
		render.Error(w, r, apperr.Validation(apperr.CodeBadRequest, "Unknown category"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic, id.UserID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump()
	}()
	go func() {
		wg.Wait()
		log.Debug().Str("user_id", id.UserID).Str("topic", topic).Msg("Feed connection finished")
	}()
}
