package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"courtportal/internal/domain"
)

// Frame is the wire shape shared with connected clients. Inbound frames
// carry subscribe/unsubscribe and mirrored writes; outbound frames carry
// message and presence events.
type Frame struct {
	Type     string           `json:"type"`
	Room     string           `json:"room,omitempty"`
	Message  *domain.Message  `json:"message,omitempty"`
	Presence *domain.Presence `json:"presence,omitempty"`
}

// Hub tracks active connections keyed by user and the channel rooms each
// connection has joined. Fan-out targets the union of a channel's
// recipients and its room subscribers, so a viewer who opened a channel
// they are not listed in (broadcast) still receives pushes.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*websocket.Conn]struct{}
	rooms map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[int64]map[*websocket.Conn]struct{}),
		rooms: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for the given user and announces presence.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
	h.mu.Unlock()

	h.BroadcastAll(Frame{Type: "presence:changed", Presence: &domain.Presence{
		UserID:   userID,
		Online:   true,
		LastSeen: time.Now().UTC(),
	}})
}

// Unregister removes a connection. If it was the user's last one, their
// offline presence is announced.
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
	for _, members := range h.rooms {
		delete(members, conn)
	}
	_, stillOnline := h.conns[userID]
	h.mu.Unlock()

	if !stillOnline {
		h.BroadcastAll(Frame{Type: "presence:changed", Presence: &domain.Presence{
			UserID:   userID,
			Online:   false,
			LastSeen: time.Now().UTC(),
		}})
	}
}

// JoinRoom subscribes a connection to a channel room.
func (h *Hub) JoinRoom(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]struct{})
	}
	h.rooms[room][conn] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a channel room.
func (h *Hub) LeaveRoom(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastChannel delivers the frame to every connection of the listed
// users plus every room subscriber, each connection at most once. With
// all=true the frame goes to every connected user instead.
func (h *Hub) BroadcastChannel(room string, userIDs []int64, all bool, f Frame) {
	if all {
		h.BroadcastAll(f)
		return
	}

	h.mu.RLock()
	targets := make(map[*websocket.Conn]struct{})
	for _, uid := range userIDs {
		for conn := range h.conns[uid] {
			targets[conn] = struct{}{}
		}
	}
	for conn := range h.rooms[room] {
		targets[conn] = struct{}{}
	}
	h.mu.RUnlock()

	for conn := range targets {
		if err := conn.WriteJSON(f); err != nil {
			conn.Close()
			// actual removal happens when the read loop exits
		}
	}
}

// BroadcastToUsers delivers the frame to all connections of the given users.
func (h *Hub) BroadcastToUsers(userIDs []int64, f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for conn := range h.conns[uid] {
			if err := conn.WriteJSON(f); err != nil {
				conn.Close()
			}
		}
	}
}

// BroadcastAll delivers the frame to every connected user.
func (h *Hub) BroadcastAll(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.conns {
		for conn := range conns {
			if err := conn.WriteJSON(f); err != nil {
				conn.Close()
			}
		}
	}
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.conns {
		n += len(conns)
	}
	return n
}
