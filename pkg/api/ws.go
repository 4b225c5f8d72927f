package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

// WSMessage is the envelope pushed to UI subscribers.
type WSMessage struct {
	Type    string      `json:"type"` // e.g. announces
	Payload interface{} `json:"payload,omitempty"`
}

// WSHub fans announce updates out to connected UI clients. Wire its
// Broadcast method as the announce store's update callback.
type WSHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[*websocket.Conn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: map[*websocket.Conn]struct{}{},
	}
}

// HandleAnnounces upgrades the connection and subscribes it to announce
// updates until the client disconnects.
func (h *WSHub) HandleAnnounces(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	log.Printf("announce ws subscriber connected (%d total)", h.count())
	go h.readLoop(c)
}

// Broadcast pushes the full announce list to every subscriber. Slow or
// dead connections are dropped rather than blocking announce processing.
func (h *WSHub) Broadcast(list []model.Announce) {
	h.mu.RLock()
	subs := make([]*websocket.Conn, 0, len(h.subs))
	for c := range h.subs {
		subs = append(subs, c)
	}
	h.mu.RUnlock()
	msg := WSMessage{Type: "announces", Payload: list}
	for _, c := range subs {
		if err := c.WriteJSON(msg); err != nil {
			h.drop(c)
		}
	}
}

func (h *WSHub) readLoop(c *websocket.Conn) {
	defer h.drop(c)
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}

func (h *WSHub) drop(c *websocket.Conn) {
	_ = c.Close()
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
}

func (h *WSHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
