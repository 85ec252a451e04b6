package handler

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/ws"
)

// WSHandler подписывает аутентифицированного пользователя на push-события.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler: origins в том же формате, что и CORS_ALLOWED_ORIGINS.
func NewWSHandler(hub *ws.Hub, origins string) *WSHandler {
	allowed := splitOrigins(origins)
	anyOrigin := slices.Contains(allowed, "*")
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// CLI и другие не-браузерные клиенты Origin не шлют.
				return anyOrigin || origin == "" || slices.Contains(allowed, origin)
			},
		},
	}
}

// ServeWS — GET /ws (за TokenAuth).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту (403 при чужом Origin).
		logger.Warnf("ws upgrade user=%d: %v", userID, err)
		return
	}
	client := ws.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	client.Start()
}
