package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/dmarochko/go-task-api/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHub fans task events out to the open sockets of a single owner.
// Connections of other owners never see the event.
type WSHub struct {
	connections map[uuid.UUID]map[*websocket.Conn]bool
	mutex       sync.Mutex
}

func NewWSHub() *WSHub {
	return &WSHub{connections: make(map[uuid.UUID]map[*websocket.Conn]bool)}
}

func (hub *WSHub) BroadcastTaskEvent(ownerID uuid.UUID, event string, task *models.Task) {
	hub.broadcast(ownerID, map[string]interface{}{
		"event":     event,
		"task_id":   task.ID,
		"title":     task.Title,
		"completed": task.Completed,
		"priority":  task.Priority,
	})
}

func (hub *WSHub) BroadcastTaskDeletion(ownerID, taskID uuid.UUID) {
	hub.broadcast(ownerID, map[string]interface{}{
		"event":   "task_deleted",
		"task_id": taskID,
	})
}

func (hub *WSHub) broadcast(ownerID uuid.UUID, payload map[string]interface{}) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	conns, exists := hub.connections[ownerID]
	if !exists {
		return
	}

	message, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal task event: %v", err)
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("Failed to send WebSocket message: %v", err)
			delete(conns, conn)
			conn.Close()
		}
	}
}

// GET /ws - upgrade and subscribe the authenticated owner to their
// own task events
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ownerID := uuid.MustParse(userID)

	clientIP := r.RemoteAddr
	if h.RateLimiter != nil && !h.RateLimiter.Allow(clientIP) {
		sendError(w, "Too many WebSocket connection attempts", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: restrict origins once the frontend host is pinned down
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.WSHub.mutex.Lock()
	if h.WSHub.connections[ownerID] == nil {
		h.WSHub.connections[ownerID] = make(map[*websocket.Conn]bool)
	}
	h.WSHub.connections[ownerID][conn] = true
	h.WSHub.mutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.mutex.Lock()
			delete(h.WSHub.connections[ownerID], conn)
			h.WSHub.mutex.Unlock()
			conn.Close()
			return
		}
		// incoming client messages are ignored, the stream is one-way
	}
}
