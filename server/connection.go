// connection.go - WebSocket connection management
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stat-attack/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Message is what a client sends over the socket.
type Message struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	TapeID    string        `json:"tape_id,omitempty"`
	Category  game.Category `json:"category,omitempty"`
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID        string
	SessionID string

	ws   *websocket.Conn
	send chan []byte
	srv  *Server
}

// checkOrigin accepts browsers from the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ServeWs handles WebSocket upgrade requests
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logf("upgrade error: %v", err)
		return
	}

	c := &Connection{
		ID:   uuid.NewString(),
		ws:   conn,
		send: make(chan []byte, sendBufferSize),
		srv:  s,
	}
	s.hub.Register(c)
	go c.writeLoop()
	go c.readLoop()
}

// readLoop reads messages from the WebSocket and routes them to handlers
func (c *Connection) readLoop() {
	defer func() {
		c.srv.hub.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logf("connection %s closed: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("bad message: " + err.Error())
			continue
		}

		switch msg.Type {
		case "join_session":
			c.handleJoinSession(msg)
		case "state":
			c.handleState()
		case "start_duel":
			c.handleStartDuel(msg)
		case game.CmdDraw, game.CmdPlay, game.CmdTimeout:
			c.handleCommand(msg)
		case "leave":
			c.handleLeave()
		default:
			c.sendError("unknown message type " + msg.Type)
		}
	}
}

// writeLoop drains the send queue and keeps the connection alive with pings.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logf("connection %s write error: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data without blocking. Callers hold the hub's lock, so the
// channel is never closed underneath them.
func (c *Connection) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendEvents writes events to this connection only.
func (c *Connection) sendEvents(events []game.Event) {
	data, err := json.Marshal(events)
	if err != nil {
		logf("encode events: %v", err)
		return
	}
	c.srv.hub.mu.RLock()
	defer c.srv.hub.mu.RUnlock()
	if c.srv.hub.connections[c] {
		c.trySend(data)
	}
}

func (c *Connection) sendError(msg string) {
	c.sendEvents([]game.Event{{Type: "Error", Data: map[string]interface{}{"message": msg}}})
}
