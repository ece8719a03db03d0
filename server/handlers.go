// handlers.go - WebSocket message handlers
package server

import (
	"context"
	"errors"
	"time"

	"stat-attack/game"
	"stat-attack/session"
)

// maxBotSteps bounds one opponent reply.
const maxBotSteps = 50

func (c *Connection) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// handleJoinSession follows a session. A live duel is replayed to the
// client so it can pick up where it left off.
func (c *Connection) handleJoinSession(msg Message) {
	st, err := c.srv.sessions.State(msg.SessionID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.srv.hub.Join(c, msg.SessionID)

	events := []game.Event{{
		Type: "SessionJoined",
		Data: map[string]interface{}{
			"sessionId": msg.SessionID,
			"state":     st,
		},
	}}
	if view, err := c.srv.sessions.DuelView(msg.SessionID); err == nil {
		events = append(events, view)
	}
	c.sendEvents(events)
}

func (c *Connection) handleState() {
	if c.SessionID == "" {
		c.sendError("Not in a session")
		return
	}
	st, err := c.srv.sessions.State(c.SessionID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendEvents([]game.Event{{Type: "State", Data: map[string]interface{}{"state": st}}})
}

func (c *Connection) handleStartDuel(msg Message) {
	if c.SessionID == "" {
		c.sendError("Not in a session")
		return
	}
	ctx, cancel := c.opContext()
	defer cancel()

	_, events, err := c.srv.sessions.StartDuel(ctx, c.SessionID, msg.TapeID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.srv.hub.Broadcast(c.SessionID, events)

	// the opponent may have the better plus/minus and go first
	c.runBotTurns()
}

func (c *Connection) handleCommand(msg Message) {
	if c.SessionID == "" {
		c.sendError("Not in a session")
		return
	}
	events, err := c.srv.sessions.DuelCommand(c.SessionID, game.Command{Type: msg.Type, Category: msg.Category})
	if len(events) > 0 {
		c.srv.hub.Broadcast(c.SessionID, events)
	}
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.runBotTurns()
}

func (c *Connection) handleLeave() {
	if c.SessionID == "" {
		return
	}
	events, err := c.srv.sessions.LeaveDuel(c.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNoActiveDuel) {
			c.sendError(err.Error())
		}
		return
	}
	c.srv.hub.Broadcast(c.SessionID, events)
}

// runBotTurns plays the opponent until it is the player's turn again
func (c *Connection) runBotTurns() {
	for i := 0; i < maxBotSteps; i++ {
		events, done, err := c.srv.sessions.BotTurn(c.SessionID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if len(events) > 0 {
			c.srv.hub.Broadcast(c.SessionID, events)
		}
		if done {
			return
		}

		// Small delay to make the opponent's plays visible
		time.Sleep(c.srv.botDelay)
	}
}
