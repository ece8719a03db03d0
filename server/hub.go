// hub.go - Tracks websocket connections per game session
package server

import (
	"encoding/json"
	"sync"
)

type Hub struct {
	mu          sync.RWMutex
	connections map[*Connection]bool
	// sessionID -> connections following that session
	sessionConns map[string][]*Connection
}

func NewHub() *Hub {
	return &Hub{
		connections:  make(map[*Connection]bool),
		sessionConns: make(map[string][]*Connection),
	}
}

func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister drops the connection and closes its send queue. A live duel
// is left running so the player can rejoin it.
func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	h.detach(c)
	close(c.send)
}

// Join moves the connection onto a session, leaving any previous one.
func (h *Hub) Join(c *Connection, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c)
	c.SessionID = sessionID
	h.sessionConns[sessionID] = append(h.sessionConns[sessionID], c)
}

// detach removes c from its session list. Callers hold h.mu.
func (h *Hub) detach(c *Connection) {
	if c.SessionID == "" {
		return
	}
	conns := h.sessionConns[c.SessionID]
	for i, conn := range conns {
		if conn == c {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(h.sessionConns, c.SessionID)
	} else {
		h.sessionConns[c.SessionID] = conns
	}
}

// Broadcast sends a message to every connection following a session
func (h *Hub) Broadcast(sessionID string, msg interface{}) {
	h.BroadcastExcept(sessionID, nil, msg)
}

// BroadcastExcept sends a message to every follower but one
func (h *Hub) BroadcastExcept(sessionID string, exclude *Connection, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		logf("broadcast to %s: %v", sessionID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessionConns[sessionID] {
		if c == exclude {
			continue
		}
		if !c.trySend(data) {
			logf("connection %s is too slow, dropping a message", c.ID)
		}
	}
}

// Followers counts the connections on a session.
func (h *Hub) Followers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessionConns[sessionID])
}
