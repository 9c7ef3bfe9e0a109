// Package broker is the realtime hub: it owns live connections, room
// membership, and the routing of the two chat pathways over a single
// websocket per client.
package broker

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// AnonymousRoom is the well-known room every session joins at connect.
// Anonymous chat broadcasts are room-scoped to it, so the global fan-out
// reuses the same primitive as group rooms.
const AnonymousRoom = "anonymous"

// Frame is one outbound event on the wire.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type set map[string]struct{}

// Hub tracks sessions and room membership. A room is purely a broadcast
// scope keyed by the group's persistent id; whether a user may join is the
// group service's concern, not the hub's.
type Hub struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]set
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:      log,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]set),
	}
}

// Register adds a session and subscribes it to the anonymous room.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.id] = s
	h.join(s.id, AnonymousRoom)
	h.log.Debug("Session registered", "conn", s.id, "total", len(h.sessions))
}

// Unregister removes the session from every room and closes its send channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[connID]
	if !ok {
		return
	}
	delete(h.sessions, connID)
	for room, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	s.closed = true
	close(s.send)
	h.log.Debug("Session unregistered", "conn", connID, "total", len(h.sessions))
}

// Join subscribes the connection to a room. It reports whether the connection
// was newly added; joining a room already joined leaves the subscriber set
// unchanged, so fan-out stays exactly once per member.
func (h *Hub) Join(connID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[connID]; !ok {
		return false
	}
	return h.join(connID, room)
}

func (h *Hub) join(connID, room string) bool {
	members, ok := h.rooms[room]
	if !ok {
		members = make(set)
		h.rooms[room] = members
	}
	if _, already := members[connID]; already {
		return false
	}
	members[connID] = struct{}{}
	return true
}

// Rooms returns the rooms the connection currently belongs to.
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var rooms []string
	for room, members := range h.rooms {
		if _, ok := members[connID]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Broadcast delivers a frame to every member of the room, sender included.
func (h *Hub) Broadcast(room string, frame Frame) {
	h.broadcast(room, "", frame)
}

// BroadcastExcept delivers a frame to every member of the room but one,
// used for join/leave notices that must not echo back to their subject.
func (h *Hub) BroadcastExcept(room, exclude string, frame Frame) {
	h.broadcast(room, exclude, frame)
}

// SendTo delivers a frame to a single connection.
func (h *Hub) SendTo(connID string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("Marshaling frame failed", "event", frame.Event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[connID]; ok {
		h.deliver(s, payload)
	}
}

func (h *Hub) broadcast(room, exclude string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("Marshaling frame failed", "event", frame.Event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[room] {
		if connID == exclude {
			continue
		}
		if s, ok := h.sessions[connID]; ok {
			h.deliver(s, payload)
		}
	}
}

// deliver is non-blocking: a subscriber whose buffer is full loses the frame
// rather than stalling the fan-out. Callers hold at least a read lock, which
// excludes Unregister closing the channel mid-send.
func (h *Hub) deliver(s *Session, payload []byte) {
	if s.closed {
		return
	}
	select {
	case s.send <- payload:
	default:
		h.log.Warn("Send buffer full, dropping frame", "conn", s.id)
	}
}
