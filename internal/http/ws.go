package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"peerlend/internal/submit"
)

// ActionEvent is pushed to connected dashboards when a tracked action
// reaches a terminal status, so open tabs refresh without polling.
type ActionEvent struct {
	Kind      string         `json:"kind"`
	Key       string         `json:"key"`
	AttemptID string         `json:"attemptId"`
	Outcome   submit.Outcome `json:"outcome"`
}

// Hub fans events out to every connected websocket client. Slow clients drop
// messages rather than stall the broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]chan []byte),
	}
}

func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	send := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[id] = send
	h.mu.Unlock()

	go func() {
		for msg := range send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		_ = conn.Close()
	}()

	// The feed is one-way; reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	close(send)
}

func (h *Hub) Broadcast(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws broadcast marshal failed: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, send := range h.clients {
		select {
		case send <- raw:
		default:
		}
	}
}
